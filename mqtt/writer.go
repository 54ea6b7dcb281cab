package mqtt

import (
	"context"
)

// Writer publishes payloads. The autopaho adapter implements it for a real broker and mqtttest.Recorder for tests.
type Writer interface {
	// WriteTopic publishes value to topic. It blocks until the publish completes at options.QoS or ctx is done.
	WriteTopic(ctx context.Context, topic string, options WriteOptions, value []byte) error
}

// WriterFunc adapts an ordinary function to a Writer.
type WriterFunc func(ctx context.Context, topic string, options WriteOptions, value []byte) error

func (f WriterFunc) WriteTopic(ctx context.Context, topic string, options WriteOptions, value []byte) error {
	return f(ctx, topic, options, value)
}

// Error discards the value returned by Value.Write or Value.Republish so the error can be passed to errors.Join.
func Error[T any](_ T, err error) error {
	return err
}
