package eventbus

import (
	"context"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/ceyewan/scoregate/clog"
	"github.com/ceyewan/scoregate/connector"
	"github.com/ceyewan/scoregate/trace"
	"github.com/ceyewan/scoregate/xerrors"
)

// NATSSink 把事件发布到 "{prefix}.{event}"，trace 上下文写入消息头
type NATSSink struct {
	conn   connector.NATSConnector
	prefix string
	logger clog.Logger
	inst   *instruments
}

// NewNATSSink 创建 NATS 转发器，prefix 为空时使用 "scoregate.events"
func NewNATSSink(conn connector.NATSConnector, prefix string, opts ...Option) (*NATSSink, error) {
	if conn == nil {
		return nil, ErrConnectorNil
	}
	if prefix == "" {
		prefix = "scoregate.events"
	}
	o := applyOptions(opts...)
	return &NATSSink{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: o.logger.With(clog.String("sink", trace.MessagingSystemNATS)),
		inst:   newInstruments(o.meter),
	}, nil
}

// Subject 返回事件对应的 subject
func (s *NATSSink) Subject(event string) string {
	return s.prefix + "." + event
}

func (s *NATSSink) Forward(ctx context.Context, ev Event) error {
	client := s.conn.GetClient()
	if client == nil {
		return xerrors.Wrap(connector.ErrNotConnected, "eventbus: nats")
	}
	data, err := Encode(ev)
	if err != nil {
		return err
	}

	subject := s.Subject(ev.Name)
	_, span, headers := trace.StartProducerSpan(ctx, trace.MessagingMeta{
		System:      trace.MessagingSystemNATS,
		Destination: subject,
	})
	defer span.End()

	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	for k, v := range headers {
		msg.Header.Set(k, v)
	}
	err = client.PublishMsg(msg)
	s.inst.forward(ctx, trace.MessagingSystemNATS, ev.Name, err)
	if err != nil {
		trace.MarkSpanError(span, err)
		return xerrors.Wrapf(err, "eventbus: publish %s", subject)
	}
	return nil
}

// Close 刷出缓冲区，连接本身由 connector 关闭
func (s *NATSSink) Close() error {
	if client := s.conn.GetClient(); client != nil {
		return client.Flush()
	}
	return nil
}
