package ctdf

type Route struct {
	ID int64 `groups:"basic" json:"id"`

	Origin      Station `groups:"basic" json:"origin"`
	Destination Station `groups:"basic" json:"destination"`

	OriginLocation      *Location `groups:"basic" json:"origin_location"`
	DestinationLocation *Location `groups:"basic" json:"destination_location"`
}

// UpsertResult reports how a batch of departures landed in a store. Both outcomes are successes.
type UpsertResult struct {
	Inserted int
	Updated  int
}

func (u UpsertResult) Total() int {
	return u.Inserted + u.Updated
}

func (u *UpsertResult) Add(other UpsertResult) {
	u.Inserted += other.Inserted
	u.Updated += other.Updated
}
