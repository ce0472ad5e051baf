package kafka

import "github.com/segmentio/kafka-go"

func NewPublisherWithWriter(w messageWriter) *Publisher {
	return newPublisherWithWriter(w)
}

func WriterOf(p *Publisher) *kafka.Writer {
	w, _ := p.w.(*kafka.Writer)
	return w
}
