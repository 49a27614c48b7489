package seeders

import (
	"log"
	"time"

	"tour-booking/constants"
	timeslotModel "tour-booking/models/timeslot"
	tourModel "tour-booking/models/tour"
	userModel "tour-booking/models/user"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemoTours creates a demo guide with a small published catalogue and a
// week of open slots. Runs are idempotent: an existing demo guide short
// circuits the whole seed.
func SeedDemoTours(db *gorm.DB) {
	log.Printf("🔍 Checking demo tour data...")

	var existing userModel.User
	if err := db.Where("email = ?", "demo-guide@example.com").First(&existing).Error; err == nil {
		log.Printf("✅ Demo guide already present. No seeding needed.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo-guide-password"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("❌ Failed to hash demo guide password: %v", err)
		return
	}

	guide := userModel.User{
		Uuid:         uuid.NewString(),
		Name:         "Demo Guide",
		Email:        "demo-guide@example.com",
		PasswordHash: string(hash),
		Permissions:  userModel.StringSlice{constants.PermGuideFull},
	}
	if err := db.Create(&guide).Error; err != nil {
		log.Printf("❌ Failed to seed demo guide: %v", err)
		return
	}

	tours := []tourModel.Tour{
		{
			GuideID:      guide.ID,
			Title:        "Old Town Food Walk",
			City:         "Bangkok",
			Description:  "Street food crawl through Rattanakosin with six tasting stops.",
			MeetingPoint: "Giant Swing, Bamrung Mueang Rd",
			DurationMin:  180,
			PricePerHead: 1200,
			Currency:     "THB",
			MaxGroupSize: 8,
			Latitude:     13.7516,
			Longitude:    100.5086,
			IsPublished:  true,
		},
		{
			GuideID:      guide.ID,
			Title:        "Sunrise Temple Ride",
			City:         "Chiang Mai",
			Description:  "Bicycle loop to Doi Suthep viewpoints before the heat sets in.",
			MeetingPoint: "Tha Phae Gate east entrance",
			DurationMin:  240,
			PricePerHead: 950,
			Currency:     "THB",
			MaxGroupSize: 6,
			Latitude:     18.7877,
			Longitude:    98.9931,
			IsPublished:  true,
		},
	}

	seeded := 0
	for i := range tours {
		if err := db.Create(&tours[i]).Error; err != nil {
			log.Printf("❌ Failed to seed tour %s: %v", tours[i].Title, err)
			continue
		}
		seeded++

		// A morning slot per tour for each of the next seven days.
		for day := 1; day <= 7; day++ {
			start := now.BeginningOfDay().AddDate(0, 0, day).Add(9 * time.Hour)
			slot := timeslotModel.TimeSlot{
				TourID:    tours[i].ID,
				StartTime: start,
				EndTime:   start.Add(time.Duration(tours[i].DurationMin) * time.Minute),
				Capacity:  tours[i].MaxGroupSize,
				Status:    timeslotModel.TimeSlotStatusAvailable,
			}
			if err := db.Create(&slot).Error; err != nil {
				log.Printf("❌ Failed to seed slot for tour %s: %v", tours[i].Title, err)
			}
		}
	}

	log.Printf("🎉 Seeding completed! Inserted demo guide and %d tours", seeded)
}
