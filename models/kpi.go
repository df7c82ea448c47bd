package models

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldKind tells the normalizer how a column is typed in strict mode.
type FieldKind int

const (
	KindText FieldKind = iota
	KindInt
	KindRate
)

// Field describes one column of the export schema.
type Field struct {
	Label  string // CSV header
	Column string // storage column name
	Kind   FieldKind
}

// FieldCount is the number of logical columns in a KPI record.
const FieldCount = 28

// Fields is the canonical export schema, in output order.
var Fields = [FieldCount]Field{
	{"アカウントID", "account_id", KindText},
	{"ルームID", "room_id", KindText},
	{"配信日時", "started_at", KindText},
	{"配信時間(分)", "duration_minutes", KindInt},
	{"連続配信日数", "consecutive_days", KindInt},
	{"ルーム名", "room_name", KindText},
	{"合計視聴数", "total_views", KindInt},
	{"視聴会員数", "viewers", KindInt},
	{"アクション会員数", "active_members", KindInt},
	{"SPギフト使用会員率", "sp_gift_rate", KindRate},
	{"初ルーム来訪者数", "first_room_visitors", KindInt},
	{"初SR来訪者数", "first_sr_visitors", KindInt},
	{"短時間滞在者数", "short_stay_visitors", KindInt},
	{"ルームレベル", "room_level", KindInt},
	{"フォロワー数", "followers", KindInt},
	{"フォロワー増減数", "follower_delta", KindInt},
	{"Post人数", "post_users", KindInt},
	{"獲得支援point", "support_points", KindInt},
	{"コメント数", "comments", KindInt},
	{"コメント人数", "commenters", KindInt},
	{"初コメント人数", "first_commenters", KindInt},
	{"ギフト数", "gifts", KindInt},
	{"ギフト人数", "gifters", KindInt},
	{"初ギフト人数", "first_gifters", KindInt},
	{"期限あり/期限なしSGのギフティング数", "sg_gift_count", KindInt},
	{"期限あり/期限なしSGのギフティング人数", "sg_gifters", KindInt},
	{"期限あり/期限なしSG総額", "sg_total", KindInt},
	{"2023年9月以前のおまけ分(無償SG RS外)", "legacy_bonus", KindInt},
}

// Header returns the CSV header row.
func Header() []string {
	out := make([]string, FieldCount)
	for i, f := range Fields {
		out[i] = f.Label
	}
	return out
}

// Mode selects how metric cells are cleaned.
type Mode string

const (
	// ModeStrict strips grouping commas and percent signs and types the
	// numeric columns.
	ModeStrict Mode = "strict"
	// ModePreserve keeps cells as trimmed text.
	ModePreserve Mode = "preserve"
)

// ParseMode validates a mode name; the empty string selects strict.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStrict:
		return ModeStrict, nil
	case ModePreserve:
		return ModePreserve, nil
	}
	return "", fmt.Errorf("unknown mode %q (want strict or preserve)", s)
}

// RawRecord is one broadcast row as scraped from the report.
type RawRecord struct {
	AccountID       string
	RoomID          string
	StartedAt       string // YYYY/MM/DD HH:MM:SS or empty
	DurationMinutes int

	ConsecutiveDays   string
	RoomName          string
	TotalViews        string
	Viewers           string
	ActiveMembers     string
	SPGiftRate        string
	FirstRoomVisitors string
	FirstSRVisitors   string
	ShortStayVisitors string
	RoomLevel         string
	Followers         string
	FollowerDelta     string
	PostUsers         string
	SupportPoints     string
	Comments          string
	Commenters        string
	FirstCommenters   string
	Gifts             string
	Gifters           string
	FirstGifters      string
	SGGiftCount       string
	SGGifters         string
	SGTotal           string
	LegacyBonus       string
}

// MetricCount is the number of string metric fields following the duration.
const MetricCount = FieldCount - 4

// Metrics returns pointers to fields 4 through 27 in schema order.
func (r *RawRecord) Metrics() [MetricCount]*string {
	return [MetricCount]*string{
		&r.ConsecutiveDays, &r.RoomName, &r.TotalViews, &r.Viewers,
		&r.ActiveMembers, &r.SPGiftRate, &r.FirstRoomVisitors, &r.FirstSRVisitors,
		&r.ShortStayVisitors, &r.RoomLevel, &r.Followers, &r.FollowerDelta,
		&r.PostUsers, &r.SupportPoints, &r.Comments, &r.Commenters,
		&r.FirstCommenters, &r.Gifts, &r.Gifters, &r.FirstGifters,
		&r.SGGiftCount, &r.SGGifters, &r.SGTotal, &r.LegacyBonus,
	}
}

// Values returns all 28 fields as strings in schema order.
func (r RawRecord) Values() [FieldCount]string {
	var out [FieldCount]string
	out[0] = r.AccountID
	out[1] = r.RoomID
	out[2] = r.StartedAt
	out[3] = strconv.Itoa(r.DurationMinutes)
	for i, p := range r.Metrics() {
		out[4+i] = *p
	}
	return out
}

// Key returns the dedupe key of the record.
func (r RawRecord) Key() DedupeKey {
	return DedupeKey{r.AccountID, r.RoomID, r.StartedAt, r.DurationMinutes}
}

// DedupeKey identifies one broadcast session.
type DedupeKey struct {
	AccountID       string
	RoomID          string
	StartedAt       string
	DurationMinutes int
}

func (k DedupeKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.AccountID, k.RoomID, k.StartedAt, k.DurationMinutes)
}

// RecordFromValues is the inverse of Values. An unparseable duration
// becomes 0.
func RecordFromValues(v [FieldCount]string) RawRecord {
	r := RawRecord{
		AccountID: v[0],
		RoomID:    v[1],
		StartedAt: v[2],
	}
	r.DurationMinutes, _ = strconv.Atoi(strings.TrimSpace(v[3]))
	for i, p := range r.Metrics() {
		*p = v[4+i]
	}
	return r
}
