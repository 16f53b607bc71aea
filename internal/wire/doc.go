// Package wire encodes logical clock values for transmission. The
// protocol is deliberately minimal: the payload is the clock value as
// ASCII decimal with no length prefix or delimiter, and the receiver
// decodes whatever one read call returns as a single integer. Rapid
// back-to-back sends on one connection can therefore coalesce in the
// stream and decode as one merged value, losing a message.
package wire
