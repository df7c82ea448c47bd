package models

// RoomTotal is one room's aggregate over a month.
type RoomTotal struct {
	RoomID     string
	RoomName   string
	Broadcasts int
	Minutes    int
	Views      int64
}

// MonthInsight holds headline figures computed over a normalized month.
type MonthInsight struct {
	Month        Month
	Broadcasts   int
	Rooms        int
	TotalMinutes int
	AvgMinutes   float64
	TotalViews   int64
	TopByViews   []RoomTotal
}
