package eventbus

import (
	"context"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/connector"
	"github.com/ceyewan/scoregate/trace"
	"github.com/ceyewan/scoregate/xerrors"
)

// KafkaSink 异步把事件写入 topic，key 为事件名，投递失败只记录日志
type KafkaSink struct {
	conn   connector.KafkaConnector
	topic  string
	logger clog.Logger
	inst   *instruments
	wg     sync.WaitGroup
}

// NewKafkaSink 创建 Kafka 转发器，topic 为空时使用连接器配置的默认 topic
func NewKafkaSink(conn connector.KafkaConnector, topic string, opts ...Option) (*KafkaSink, error) {
	if conn == nil {
		return nil, ErrConnectorNil
	}
	if topic == "" {
		topic = conn.Config().Topic
	}
	if topic == "" {
		topic = "scoregate.events"
	}
	o := applyOptions(opts...)
	return &KafkaSink{
		conn:   conn,
		topic:  topic,
		logger: o.logger.With(clog.String("sink", trace.MessagingSystemKafka), clog.String("topic", topic)),
		inst:   newInstruments(o.meter),
	}, nil
}

func (s *KafkaSink) Forward(ctx context.Context, ev Event) error {
	client := s.conn.GetClient()
	if client == nil {
		return xerrors.Wrap(connector.ErrNotConnected, "eventbus: kafka")
	}
	data, err := Encode(ev)
	if err != nil {
		return err
	}

	spanCtx, span, headers := trace.StartProducerSpan(ctx, trace.MessagingMeta{
		System:      trace.MessagingSystemKafka,
		Destination: s.topic,
	})

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(ev.Name),
		Value: data,
	}
	for k, v := range headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	// 发布方的请求可能先于投递结束，回调里不使用它的取消信号
	s.wg.Add(1)
	client.Produce(context.WithoutCancel(spanCtx), record, func(r *kgo.Record, err error) {
		defer s.wg.Done()
		defer span.End()
		s.inst.forward(context.Background(), trace.MessagingSystemKafka, ev.Name, err)
		if err != nil {
			trace.MarkSpanError(span, err)
			s.logger.Error("failed to produce event",
				clog.String("event", ev.Name),
				clog.Error(err))
		}
	})
	return nil
}

// Close 等待已提交的记录完成投递
func (s *KafkaSink) Close() error {
	if client := s.conn.GetClient(); client != nil {
		if err := client.Flush(context.Background()); err != nil {
			return xerrors.Wrap(err, "eventbus: flush kafka")
		}
	}
	s.wg.Wait()
	return nil
}
