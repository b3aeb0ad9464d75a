package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

func init() {
	// Load env from .env
	godotenv.Load()
	// Do NOT block startup in init() waiting for DB.
}

// ConnectDatabaseWithRetry connects and sets the global DB. Only needed when
// LEDGER_BACKEND=db; the default file ledger runs without a database.
func ConnectDatabaseWithRetry() {
	dsn := strings.TrimSpace(os.Getenv("LEDGER_DB_DSN"))
	if dsn == "" {
		log.Printf("LEDGER_DB_DSN not set; db ledger backend unavailable")
		return
	}

	var attempt int
	for {
		attempt++
		conn, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
			NamingStrategy: schema.NamingStrategy{
				SingularTable: false,
			},
		})
		if err == nil {
			db = conn
			log.Printf("connected to database (attempt=%d)", attempt)
			return
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}
