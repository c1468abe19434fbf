package mq

import (
	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"banksystem/internal/config"
)

var producer sarama.SyncProducer

// InitKafka 初始化 Kafka 生产者。kafka.enabled=false 时整个包是空操作
func InitKafka(cfg *config.KafkaConfig) error {
	if !cfg.Enabled {
		logrus.Info("Kafka 未启用，事件仅落盘不发送")
		return nil
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return err
	}
	producer = p
	logrus.Info("Kafka 生产者创建成功")
	return nil
}

// Enabled 是否已接入 Kafka
func Enabled() bool {
	return producer != nil
}

// SendMessage 同步发送一条消息
func SendMessage(topic, key, value string) error {
	if producer == nil {
		return nil
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}
	_, _, err := producer.SendMessage(msg)
	return err
}

// CloseKafka 关闭生产者
func CloseKafka() {
	if producer != nil {
		producer.Close()
		producer = nil
	}
}
