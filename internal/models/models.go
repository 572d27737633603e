package models

import "time"

// Coordinate is a WGS 84 point. Latitude is bounded to [-90,90] and
// longitude to [-180,180]; use geo.ValidateCoordinate before trusting
// client input.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Status is the ride lifecycle state. Rides only move forward:
// requested -> accepted. Later states (in progress, completed, cancelled)
// are reserved but not reachable yet.
type Status string

const (
	StatusRequested Status = "requested"
	StatusAccepted  Status = "accepted"
)

// Role distinguishes the two participant slots on a ride.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// ValidRole reports whether r is one of the recognized participant roles.
func ValidRole(r Role) bool { return r == RoleRider || r == RoleDriver }

// Ride is the persisted record of one transport request. The store assigns
// ID at creation; RiderID, Pickup, Dropoff, DropoffLabel and Fare never
// change afterwards. DriverID is empty exactly while Status is requested
// and is set once, by the accept transition.
type Ride struct {
	ID           string     `json:"id"`
	RiderID      string     `json:"riderId"`
	DriverID     string     `json:"driverId,omitempty"`
	Pickup       Coordinate `json:"pickup"`
	Dropoff      Coordinate `json:"dropoff"`
	DropoffLabel string     `json:"dropoffLabel"`
	Fare         float64    `json:"fare"`
	Status       Status     `json:"status"`
	RequestedAt  time.Time  `json:"requestedAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Quote is a fare preview. Nothing is persisted when one is produced.
type Quote struct {
	DistanceKm    float64    `json:"distanceKm"`
	EstimatedFare float64    `json:"estimatedFare"`
	DropoffCoords Coordinate `json:"dropoffCoords"`
}

// User is the minimal identity view the ride engine consumes. Credentials
// and profile data belong to the identity provider.
type User struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"fullName,omitempty"`
	Role     Role      `json:"role"`
	Created  time.Time `json:"createdAt"`
}

// DriverLocation is one live position report from a driver's device.
type DriverLocation struct {
	DriverID string     `json:"driverId"`
	Loc      Coordinate `json:"loc"`
	Online   bool       `json:"online"`
	Updated  time.Time  `json:"updated"`
}

// EarningsSummary is the read-side aggregate for a driver's accepted rides.
type EarningsSummary struct {
	DriverID   string  `json:"driverId"`
	Rides      int64   `json:"rides"`
	TotalFares float64 `json:"totalFares"`
}

// Realtime event names carried over the notification channel.
const (
	EventRideRequested  = "ride_requested"
	EventRideAccepted   = "ride_accepted"
	EventDriverLocation = "driver_location"
	EventChatMessage    = "chat_message"
	EventJoinRide       = "join_ride"
)
