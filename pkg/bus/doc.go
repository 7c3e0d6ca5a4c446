// Package bus is the same-device publish/subscribe channel that keeps
// panel contexts in sync.
//
// A Hub owns any number of named channels. Each context opens its own
// Endpoint on a channel; a message published on an Endpoint reaches every
// other Endpoint on the same channel, never the publisher itself.
//
//	hub := bus.NewHub()
//	operator := hub.Open(bus.DefaultChannel)
//	display := hub.Open(bus.DefaultChannel)
//	defer display.Close()
//
//	display.Subscribe(func(msg bus.Message) {
//	    fmt.Println("got", msg.Type)
//	})
//	operator.Publish(bus.Message{Type: "TICKET_UPDATE", Payload: payload})
//
// Handlers run on the receiving endpoint's delivery goroutine, one message
// at a time, in the order the messages were published by any single
// sender. The bus is a live notification channel: endpoints that are not
// open when a message is published never see it. Durable state lives in
// package storage.
package bus
