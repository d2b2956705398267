package trace

// 上游调用 Span 属性
const (
	AttrProvider  = "scoregate.provider"
	AttrOperation = "scoregate.operation"
	AttrCacheKey  = "scoregate.cache_key"
	AttrFromCache = "scoregate.from_cache"
)

// Messaging 语义属性
const (
	AttrMessagingSystem      = "messaging.system"
	AttrMessagingDestination = "messaging.destination"
	AttrMessagingOperation   = "messaging.operation"
)

const (
	MessagingSystemNATS  = "nats"
	MessagingSystemKafka = "kafka"

	MessagingOperationPublish = "publish"
)

// SpanNamePublish 返回事件转发的 Span 名称
func SpanNamePublish(destination string) string {
	if destination == "" {
		return "event.publish"
	}
	return "event.publish " + destination
}
