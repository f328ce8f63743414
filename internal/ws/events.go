package ws

import "time"

type EventType string

const (
	EventFacesRecognized   EventType = "faces.recognized"
	EventFacesRegistered   EventType = "faces.registered"
	EventFacesUnregistered EventType = "faces.unregistered"
	EventWorkerFailed      EventType = "worker.failed"
)

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
