package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/outbox"
)

// initKafkaProducer создаёт Kafka producer, если brokers не пуст.
// Возвращает nil, nil для пустого списка.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

// closeKafka закрывает Kafka producer, если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// outboxPublishers собирает маршрутизатор outbox: очистка корзины выполняется
// внутри процесса, события заказа уходят в Kafka или в лог.
func outboxPublishers(cfg Config, producer *kafka.Producer, carts domain.CartRepository, logger *log.Entry) (publisher, dlq domain.OutboxPublisher) {
	var fallback domain.OutboxPublisher = outbox.LogPublisher{Logger: logger.WithField("component", "outbox-log-publisher")}
	if producer != nil {
		fallback = kafka.NewOutboxPublisher(producer, cfg.KafkaTopic)
		dlq = kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic)
	}

	router := outbox.NewRouter(fallback).
		Handle(domain.EventCartClear, outbox.CartClearHandler(carts))
	return router, dlq
}
