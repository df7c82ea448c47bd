package services

import (
	"sort"
	"strconv"
	"strings"

	"showroom-kpi/models"
	"showroom-kpi/utils"
)

const topRooms = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarizes a month's table. It reads cells as text so that it
// works the same on strict and preserve tables.
func (s *InsightService) Generate(t *models.Table) *models.MonthInsight {
	report := &models.MonthInsight{}
	if t == nil || t.Empty() {
		return report
	}
	report.Month = t.Month
	report.Broadcasts = t.Len()

	byRoom := make(map[string]*models.RoomTotal)
	var order []string

	for _, row := range t.Rows {
		cells := row.Strings()
		roomID := cells[1]
		minutes, _ := strconv.Atoi(cells[3])
		views := parseCount(cells[6])

		rt, ok := byRoom[roomID]
		if !ok {
			rt = &models.RoomTotal{RoomID: roomID}
			byRoom[roomID] = rt
			order = append(order, roomID)
		}
		if name := cells[5]; name != "" {
			rt.RoomName = name
		}
		rt.Broadcasts++
		rt.Minutes += minutes
		rt.Views += views

		report.TotalMinutes += minutes
		report.TotalViews += views
	}

	report.Rooms = len(byRoom)
	report.AvgMinutes = round1(float64(report.TotalMinutes) / float64(report.Broadcasts))

	rooms := make([]models.RoomTotal, 0, len(order))
	for _, id := range order {
		rooms = append(rooms, *byRoom[id])
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].Views > rooms[j].Views
	})
	if len(rooms) > topRooms {
		rooms = rooms[:topRooms]
	}
	report.TopByViews = rooms

	s.logger.Debug("[insights] %s: %d broadcasts across %d rooms",
		t.Month.Label(), report.Broadcasts, report.Rooms)
	return report
}

// parseCount reads a count that may still carry grouping commas. Blank
// and "-" count as zero.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func round1(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
