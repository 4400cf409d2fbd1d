/*
Package gateway implements the asynchronous RPC loop over a message broker:
it consumes operation requests from a shared queue, routes each one to its
handler by operation tag, and publishes a correlated response to the reply
destination named by the request. Handler failures are contained per message;
the listener itself never crashes on a bad request.
*/
package gateway
