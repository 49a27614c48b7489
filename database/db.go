package database

import (
	"fmt"
	"os"

	"tour-booking/database/seeders"
	"tour-booking/logger"
	"tour-booking/models/booking"
	"tour-booking/models/log"
	"tour-booking/models/notification"
	"tour-booking/models/slip"
	"tour-booking/models/timeslot"
	"tour-booking/models/tour"
	"tour-booking/models/user"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the database connection with auto migration and indexing
func InitDB() (*gorm.DB, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", err)
	}

	// Get database configuration from environment variables
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_DATABASE")
	user := os.Getenv("DB_USERNAME")
	password := os.Getenv("DB_PASSWORD")
	sslmode := os.Getenv("DB_SSLMODE")

	// Set default sslmode if not provided
	if sslmode == "" {
		sslmode = "disable"
	}

	// Build PostgreSQL DSN string
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, database, sslmode)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")

	if err := autoMigrate(); err != nil {
		logger.Error("Failed to run migrations", err)
		return nil, err
	}
	logger.Success("All migrations completed successfully")

	// Handle foreign key constraints after migrations
	if err := createForeignKeyConstraints(); err != nil {
		logger.Error("Failed to create foreign key constraints", err)
		return nil, err
	}
	logger.Success("All foreign key constraints created successfully")

	// Create indexes for better performance
	if err := createIndexes(); err != nil {
		logger.Error("Failed to create indexes", err)
		return nil, err
	}
	logger.Success("All indexes created successfully")

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		seeders.SeedDemoTours(DB)
	}

	return DB, nil
}

// autoMigrate runs auto migration for all models in dependency stages
func autoMigrate() error {
	// Stage 1: Core foundation models
	stage1Models := []interface{}{
		&user.User{},
		&tour.Tour{},
	}

	for _, model := range stage1Models {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 2: Models with dependencies on Stage 1
	stage2Models := []interface{}{
		&timeslot.TimeSlot{},
		&booking.Booking{},
		&booking.SlotReservation{},
		&booking.BookingStatusEvent{},
	}

	for _, model := range stage2Models {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 3: Remaining models
	remainingModels := []interface{}{
		&notification.Notification{},
		&slip.SlipVerificationRequest{},
		&log.Log{},
	}

	for _, model := range remainingModels {
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	return nil
}

// createIndexes creates additional indexes for better performance
func createIndexes() error {
	indexes := []struct {
		name string
		sql  string
	}{
		{"idx_users_uuid", "CREATE INDEX IF NOT EXISTS idx_users_uuid ON users(uuid)"},
		{"idx_users_email", "CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)"},
		{"idx_tours_guide_id", "CREATE INDEX IF NOT EXISTS idx_tours_guide_id ON tours(guide_id)"},
		{"idx_tours_city", "CREATE INDEX IF NOT EXISTS idx_tours_city ON tours(city)"},
		{"idx_time_slots_tour_start", "CREATE INDEX IF NOT EXISTS idx_time_slots_tour_start ON time_slots(tour_id, start_time)"},
		{"idx_time_slots_status", "CREATE INDEX IF NOT EXISTS idx_time_slots_status ON time_slots(status)"},
		{"idx_bookings_time_slot_id", "CREATE INDEX IF NOT EXISTS idx_bookings_time_slot_id ON bookings(time_slot_id)"},
		{"idx_bookings_reference", "CREATE INDEX IF NOT EXISTS idx_bookings_reference ON bookings(booking_reference)"},
		{"idx_bookings_status", "CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)"},
		{"idx_bookings_payment_status", "CREATE INDEX IF NOT EXISTS idx_bookings_payment_status ON bookings(payment_status)"},
		{"idx_bookings_created_at", "CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings(created_at)"},
		{"idx_slot_reservations_token", "CREATE INDEX IF NOT EXISTS idx_slot_reservations_token ON slot_reservations(token)"},
		{"idx_notifications_status", "CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status)"},
		{"idx_logs_status_code", "CREATE INDEX IF NOT EXISTS idx_logs_status_code ON logs(status_code)"},
		{"idx_logs_created_at", "CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at)"},
	}

	for _, idx := range indexes {
		if err := DB.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// createForeignKeyConstraints creates foreign key constraints after auto migration
func createForeignKeyConstraints() error {
	// Define constraints with their names for checking existence
	constraints := []struct {
		name string
		sql  string
	}{
		{
			name: "fk_time_slots_tour",
			sql: `ALTER TABLE time_slots ADD CONSTRAINT fk_time_slots_tour
				  FOREIGN KEY (tour_id) REFERENCES tours(id)
				  ON UPDATE CASCADE ON DELETE RESTRICT`,
		},
		{
			name: "fk_bookings_time_slot",
			sql: `ALTER TABLE bookings ADD CONSTRAINT fk_bookings_time_slot
				  FOREIGN KEY (time_slot_id) REFERENCES time_slots(id)
				  ON UPDATE CASCADE ON DELETE RESTRICT`,
		},
		{
			name: "fk_slot_reservations_time_slot",
			sql: `ALTER TABLE slot_reservations ADD CONSTRAINT fk_slot_reservations_time_slot
				  FOREIGN KEY (time_slot_id) REFERENCES time_slots(id)
				  ON UPDATE CASCADE ON DELETE RESTRICT`,
		},
	}

	for _, constraint := range constraints {
		// Check if constraint already exists
		var exists bool
		checkSQL := `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.table_constraints
				WHERE constraint_name = $1
			)
		`

		err := DB.Raw(checkSQL, constraint.name).Scan(&exists).Error
		if err != nil {
			logger.Warning(fmt.Sprintf("Failed to check constraint existence: %s - Error: %v", constraint.name, err))
			continue
		}

		if !exists {
			if err := DB.Exec(constraint.sql).Error; err != nil {
				logger.Warning(fmt.Sprintf("Failed to create constraint: %s - Error: %v", constraint.name, err))
			} else {
				logger.Success(fmt.Sprintf("Successfully created constraint: %s", constraint.name))
			}
		} else {
			logger.Debug(fmt.Sprintf("Constraint already exists: %s", constraint.name))
		}
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
