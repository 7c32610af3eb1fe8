package nats

import (
	"github.com/stardustagi/BlendGPT/libs/logs"
)

func (s *NatsConnection) Publish(subject string, data []byte) error {
	if subject == "" {
		return errEmptySubject
	}
	err := s.conn.Publish(subject, data)
	if err != nil {
		s.logger.Error("Failed to publish message",
			logs.String("subject", subject),
			logs.ErrorInfo(err))
	}
	return err
}
