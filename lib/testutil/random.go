package testutil

import (
	"fmt"
	"math/rand"
)

// RandomString generates a random lowercase string given the pseudo random source.
func RandomString(rndm *rand.Rand, length int) string {
	str := make([]rune, length)
	for i := range length {
		str[i] = 'a' + rune(rndm.Intn(26))
	}
	return string(str)
}

// RandomAttendee builds an attendee with random profile data, ids are
// zero padded so they look numeric.
func RandomAttendee(rndm *rand.Rand, eventId, eventName string) string {
	name := RandomString(rndm, 6)
	return Attendee(fmt.Sprintf("%08d", rndm.Intn(100_000_000)), map[string]any{
		"event_id":              eventId,
		"order_id":              fmt.Sprintf("%06d", rndm.Intn(1_000_000)),
		"checked_in":            rndm.Intn(2) == 0,
		"ticket_class_name":     "General Admission",
		"profile.name":          name,
		"profile.email":         fmt.Sprintf("%s@example.com", name),
		"profile.age":           18 + rndm.Intn(60),
		"event.id":              eventId,
		"event.organization_id": "0042",
		"event.name.text":       eventName,
		"event.start.utc":       "2024-05-01T17:00:00Z",
	})
}
