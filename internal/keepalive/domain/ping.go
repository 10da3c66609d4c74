package domain

import "time"

// DefaultTable is the table keepalive pings are written to.
const DefaultTable = "keepalive_pings"

// Ping is one keepalive row. PingTime is set by the client; CreatedAt by the database.
type Ping struct {
	PingTime  time.Time
	CreatedAt time.Time
}
