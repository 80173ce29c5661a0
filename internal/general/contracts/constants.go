package contracts

// Exchanges
const (
	ExchangeTripTopic      = "trip_topic"
	ExchangeLocationFanout = "location_fanout"
)

// Queues
const (
	QueueTripOffers        = "trip_offers"
	QueueTripStatus        = "trip_status"
	QueueLocationBroadcast = "location_broadcast"
	QueueLocationArchive   = "location_archive"
)

// Routing patterns
const (
	RouteTripStatusPrefix = "trip.status." // {status}
	RouteTripOffer        = "trip.offer"
	RouteTripTaken        = "trip.taken"
)
