/*
Package rabbitmq provides the AMQP broker behind the payment gateway.
It owns connection lifecycle and topology, reconnects with backoff on
connection loss, and serializes publishes over the single channel.
*/
package rabbitmq
