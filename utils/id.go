package utils

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var mu sync.Mutex
var seededRand *rand.Rand
var lastNano int64

func init() {
	seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))
}

// nextNano returns a strictly increasing nanosecond timestamp so two ids
// generated in the same tick never collide.
func nextNano() int64 {
	now := time.Now().UnixNano()
	if now <= lastNano {
		now = lastNano + 1
	}
	lastNano = now
	return now
}

// GenerateRequestID returns a time-ordered identifier for guest requests and
// work orders.
func GenerateRequestID() string {
	mu.Lock()
	defer mu.Unlock()

	return fmt.Sprintf("req_%d%04d", nextNano(), seededRand.Intn(10000))
}

// GenerateNotificationID returns a unique identifier for notifications.
func GenerateNotificationID() string {
	mu.Lock()
	defer mu.Unlock()

	return fmt.Sprintf("ntf_%d%04d", nextNano(), seededRand.Intn(10000))
}
