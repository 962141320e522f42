package integration_test

const (
	cacheImageName = "redis:7"

	movieID     = "mv-1"
	showDate    = "2030-06-01"
	eveningSlot = "2030-06-01T19:00:00Z"
	lateSlot    = "2030-06-01T22:30:00Z"
	bearerToken = "integration-token"

	// card numbers ending in 0002 are declined by the fake authority
	declinedCard = "4000000000000002"
	acceptedCard = "4242424242424242"
)
