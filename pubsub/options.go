package pubsub

// Scope is the app and namespace prefix of a qualified topic.
type Scope struct {
	App       string
	Namespace string
}

// Topic qualifies topic with the scope.
func (s Scope) Topic(topic string) string {
	return FormatTopic(s.App, s.Namespace, topic)
}

// PublishOption overrides the broker scope for one publish.
type PublishOption interface {
	Apply(*Scope)
}

// PublishOptionFunc adapts a function to PublishOption.
type PublishOptionFunc func(*Scope)

// Apply calls f(scope).
func (f PublishOptionFunc) Apply(scope *Scope) {
	f(scope)
}

// WithPublishApp publishes under another app.
func WithPublishApp(value string) PublishOption {
	return PublishOptionFunc(func(s *Scope) {
		s.App = value
	})
}

// WithPublishNamespace publishes under another namespace.
func WithPublishNamespace(value string) PublishOption {
	return PublishOptionFunc(func(s *Scope) {
		s.Namespace = value
	})
}

// SubscribeOption overrides the broker scope for one subscription.
type SubscribeOption interface {
	Apply(*Scope)
}

// SubscribeOptionFunc adapts a function to SubscribeOption.
type SubscribeOptionFunc func(*Scope)

// Apply calls f(scope).
func (f SubscribeOptionFunc) Apply(scope *Scope) {
	f(scope)
}

// WithSubscribeApp subscribes to another app's topics.
func WithSubscribeApp(value string) SubscribeOption {
	return SubscribeOptionFunc(func(s *Scope) {
		s.App = value
	})
}

// WithSubscribeNamespace subscribes to another namespace.
func WithSubscribeNamespace(value string) SubscribeOption {
	return SubscribeOptionFunc(func(s *Scope) {
		s.Namespace = value
	})
}

// PublishTopic returns the qualified topic for a publish call.
func PublishTopic(config Config, topic string, options ...PublishOption) string {
	scope := config.Scope()
	for _, f := range options {
		f.Apply(&scope)
	}
	return scope.Topic(topic)
}

// SubscribeTopic returns the qualified topic for a subscription.
func SubscribeTopic(config Config, topic string, options ...SubscribeOption) string {
	scope := config.Scope()
	for _, f := range options {
		f.Apply(&scope)
	}
	return scope.Topic(topic)
}
