package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "BR"

var slotTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// AppConfig is the full runtime configuration of the broadcast agent,
// loaded once from the environment in main().
type AppConfig struct {
	Destinations []string `validate:"required,min=1"`
	SlotTimes    []string `validate:"required,min=1"`

	Simulate   bool
	ListGroups bool

	// Catalog: Sheets when SpreadsheetId is set, local workbook otherwise.
	SpreadsheetId string
	SheetRange    string
	WorkbookPath  string
	WorkbookSheet string

	// Assets: Drive when DriveFolderId is set, GCS when Bucket is set.
	DriveFolderId string
	GCSBucket     string
	LocalImageDir string

	// Ledger: "file" (default) or "db".
	LedgerBackend string `validate:"oneof=file db"`
	LedgerPath    string

	// Messaging gateway (wppconnect-server).
	WppBaseURL string `validate:"required,url"`
	WppSession string `validate:"required"`
	WppToken   string

	SendPause time.Duration

	AdminTokenHash string
	Port           string
}

func LoadAppConfig() (*AppConfig, error) {
	godotenv.Load()

	cfg := &AppConfig{
		Destinations:   splitAndTrim(os.Getenv("DESTINATIONS")),
		SlotTimes:      splitAndTrim(os.Getenv("SLOT_TIMES")),
		Simulate:       envBool("SIMULATE", false),
		ListGroups:     envBool("LIST_GROUPS", false),
		SpreadsheetId:  strings.TrimSpace(os.Getenv("SPREADSHEET_ID")),
		SheetRange:     strings.TrimSpace(os.Getenv("SHEET_RANGE")),
		WorkbookPath:   strings.TrimSpace(os.Getenv("CATALOG_WORKBOOK")),
		WorkbookSheet:  strings.TrimSpace(os.Getenv("CATALOG_WORKBOOK_SHEET")),
		DriveFolderId:  strings.TrimSpace(os.Getenv("DRIVE_FOLDER_ID")),
		GCSBucket:      strings.TrimSpace(os.Getenv("GCS_BUCKET")),
		LocalImageDir:  strings.TrimSpace(os.Getenv("LOCAL_IMAGE_DIR")),
		LedgerBackend:  strings.TrimSpace(os.Getenv("LEDGER_BACKEND")),
		LedgerPath:     strings.TrimSpace(os.Getenv("LEDGER_PATH")),
		WppBaseURL:     strings.TrimSpace(os.Getenv("WPP_BASE_URL")),
		WppSession:     strings.TrimSpace(os.Getenv("WPP_SESSION")),
		WppToken:       strings.TrimSpace(os.Getenv("WPP_TOKEN")),
		SendPause:      time.Duration(envInt("SEND_PAUSE_MS", 1000)) * time.Millisecond,
		AdminTokenHash: strings.TrimSpace(os.Getenv("ADMIN_TOKEN_HASH")),
		Port:           strings.TrimSpace(os.Getenv("PORT")),
	}

	if cfg.SheetRange == "" {
		cfg.SheetRange = "Products!A1:Z"
	}
	if cfg.WorkbookSheet == "" {
		cfg.WorkbookSheet = "Products"
	}
	if cfg.LocalImageDir == "" {
		cfg.LocalImageDir = "./product_images"
	}
	if cfg.LedgerBackend == "" {
		cfg.LedgerBackend = "file"
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = "./sent.json"
	}
	if cfg.WppSession == "" {
		cfg.WppSession = "browser"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}
	for _, slot := range cfg.SlotTimes {
		if !slotTimeRe.MatchString(slot) {
			return nil, fmt.Errorf("invalid slot time %q (want HH:mm)", slot)
		}
	}
	for _, dest := range cfg.Destinations {
		if err := validateDestination(dest); err != nil {
			return nil, err
		}
	}
	if cfg.SpreadsheetId == "" && cfg.WorkbookPath == "" {
		return nil, fmt.Errorf("either SPREADSHEET_ID or CATALOG_WORKBOOK is required")
	}

	return cfg, nil
}

// validateDestination accepts group ids ("<serial>@g.us") and direct contacts
// ("<msisdn>@c.us"). Contact numbers are checked with libphonenumber so a typo
// fails at startup, not at the first send.
func validateDestination(dest string) error {
	switch {
	case strings.HasSuffix(dest, "@g.us"):
		serial := strings.TrimSuffix(dest, "@g.us")
		if serial == "" || strings.ContainsAny(serial, " \t") {
			return fmt.Errorf("invalid group destination %q", dest)
		}
		return nil
	case strings.HasSuffix(dest, "@c.us"):
		number := strings.TrimSuffix(dest, "@c.us")
		p, err := libphonenumber.Parse("+"+number, CountryCode)
		if err != nil {
			return fmt.Errorf("invalid contact destination %q: %v", dest, err)
		}
		if !libphonenumber.IsValidNumber(p) {
			return fmt.Errorf("invalid contact destination %q: number is not valid", dest)
		}
		return nil
	default:
		return fmt.Errorf("invalid destination %q (want ...@g.us or ...@c.us)", dest)
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envBool(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envInt(key string, def int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
