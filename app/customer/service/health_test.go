package service

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubReadiness bool

func (r stubReadiness) IsReady() bool { return bool(r) }

func TestHealthService_Check(t *testing.T) {
	Convey("Given a health service", t, func() {
		newHealth := func(dbErr error, ready bool) *HealthService {
			h := NewHealthService(stubPinger{err: dbErr}, stubReadiness(ready), nil, time.Second)
			h.now = fixedNow
			return h
		}

		Convey("When the database and the bus are both up", func() {
			report := newHealth(nil, true).Check(context.Background())

			Convey("Then everything reports UP", func() {
				So(report.Status, ShouldEqual, StatusUp)
				So(report.Services.Database, ShouldEqual, StatusUp)
				So(report.Services.Kafka, ShouldEqual, StatusUp)
				So(report.Healthy(), ShouldBeTrue)
				So(report.Timestamp, ShouldEqual, "2024-03-05T10:00:00.000Z")
			})
		})

		Convey("When only the bus is down", func() {
			report := newHealth(nil, false).Check(context.Background())

			Convey("Then the service is still healthy", func() {
				So(report.Status, ShouldEqual, StatusUp)
				So(report.Services.Kafka, ShouldEqual, StatusDown)
				So(report.Healthy(), ShouldBeTrue)
			})
		})

		Convey("When the database is down", func() {
			report := newHealth(errors.New("connection refused"), true).Check(context.Background())

			Convey("Then the service is unhealthy", func() {
				So(report.Status, ShouldEqual, StatusDown)
				So(report.Services.Database, ShouldEqual, StatusDown)
				So(report.Services.Kafka, ShouldEqual, StatusUp)
				So(report.Healthy(), ShouldBeFalse)
			})
		})

		Convey("When no bus is wired", func() {
			h := NewHealthService(stubPinger{}, nil, nil, 0)
			report := h.Check(context.Background())

			Convey("Then kafka reports DOWN", func() {
				So(report.Services.Kafka, ShouldEqual, StatusDown)
				So(report.Healthy(), ShouldBeTrue)
			})
		})
	})
}

// TestHealthService_RealStore 数据库关闭后探测失败
func TestHealthService_RealStore(t *testing.T) {
	Convey("Given a sqlite backed store", t, func() {
		db := newTestDB(t)
		store := NewCustomerStore(db, nil, time.Second)
		h := NewHealthService(store, stubReadiness(false), nil, time.Second)

		So(h.Check(context.Background()).Healthy(), ShouldBeTrue)

		Convey("When the pool is closed", func() {
			sqlDB, err := db.DB()
			So(err, ShouldBeNil)
			So(sqlDB.Close(), ShouldBeNil)

			So(h.Check(context.Background()).Healthy(), ShouldBeFalse)
		})
	})
}
