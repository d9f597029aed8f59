package schedule

import (
	"time"

	"kyri56xcaesar/capstone-pms/internal/domain"
)

var kst = time.FixedZone("KST", 9*60*60)

func kstTime(y int, mo time.Month, d, h, mi int) time.Time {
	return time.Date(y, mo, d, h, mi, 0, 0, kst)
}

func ptr[T any](v T) *T { return &v }

func assignment(id int64, status domain.AssignmentStatus, due *time.Time) domain.Assignment {
	return domain.Assignment{ID: id, ProjectID: 1, Title: "assignment", Status: status, DueDate: due}
}

func event(id int64, typ domain.EventType, start time.Time, end *time.Time) domain.Event {
	return domain.Event{ID: id, ProjectID: 1, Title: "event", Type: typ, StartAt: start, EndAt: end}
}
