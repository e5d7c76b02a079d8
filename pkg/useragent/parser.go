package useragent

import (
	"fmt"
	"os"
	"strings"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"

	Unknown = "Unknown"
)

// DeviceInfo is what a click keeps from its User-Agent header.
type DeviceInfo struct {
	DeviceClass string // mobile, tablet or desktop
	Browser     string
	OS          string
	Bot         bool
}

type signature struct {
	marker string
	name   string
}

// Ordered most specific first: Edge, Opera and Samsung all carry a Chrome token, and
// Chrome carries a Safari token.
var browserSignatures = []signature{
	{"Edg/", "Edge"},
	{"EdgA/", "Edge"},
	{"EdgiOS/", "Edge"},
	{"Edge/", "Edge"},
	{"OPR/", "Opera"},
	{"Opera Mini", "Opera"},
	{"Opera/", "Opera"},
	{"SamsungBrowser/", "Samsung Internet"},
	{"YaBrowser/", "Yandex Browser"},
	{"Vivaldi/", "Vivaldi"},
	{"FxiOS/", "Firefox"},
	{"Firefox/", "Firefox"},
	{"CriOS/", "Chrome"},
	{"Chromium/", "Chromium"},
	{"Chrome/", "Chrome"},
	{"MSIE ", "Internet Explorer"},
	{"Trident/", "Internet Explorer"},
	{"Safari/", "Safari"},
}

// Android agents also say Linux and iOS agents say "like Mac OS X", so those come first.
var osSignatures = []signature{
	{"Windows Phone", "Windows Phone"},
	{"Windows", "Windows"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"iPod", "iOS"},
	{"Android", "Android"},
	{"CrOS", "Chrome OS"},
	{"Mac OS X", "macOS"},
	{"Macintosh", "macOS"},
	{"Linux", "Linux"},
}

var (
	tabletMarkers = []string{"iPad", "Tablet", "Kindle", "Silk/", "PlayBook"}
	mobileMarkers = []string{"Mobile", "iPhone", "iPod", "Android", "Windows Phone", "BlackBerry", "Opera Mini"}
	botMarkers    = []string{"bot", "crawler", "spider", "slurp", "facebookexternalhit", "preview"}
)

// Parser classifies User-Agent strings. Signature tables decide first; the uap-go regex set
// fills in browser and OS families the tables do not know and flags crawlers.
type Parser struct {
	uap *uaparser.Parser
	log *zap.Logger
}

// NewParser builds a parser from a uap-core regexes file, or from the regexes bundled with
// uap-go when regexFilePath is empty or missing.
func NewParser(regexFilePath string, log *zap.Logger) (*Parser, error) {
	if regexFilePath == "" {
		return &Parser{uap: uaparser.NewFromSaved(), log: log}, nil
	}

	regexBytes, err := os.ReadFile(regexFilePath)
	if os.IsNotExist(err) {
		log.Info("User-Agent regexes file not found, using bundled definitions", zap.String("regexes_file", regexFilePath))
		return &Parser{uap: uaparser.NewFromSaved(), log: log}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read regexes file: %w", err)
	}

	uap, err := uaparser.NewFromBytes(regexBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create User-Agent parser: %w", err)
	}

	log.Info("User-Agent parser initialized", zap.String("regexes_file", regexFilePath))
	return &Parser{uap: uap, log: log}, nil
}

// Parse never fails: anything it cannot recognize is a desktop with Unknown browser and OS.
func (p *Parser) Parse(userAgent string) DeviceInfo {
	info := DeviceInfo{
		DeviceClass: DeviceClass(userAgent),
		Browser:     match(browserSignatures, userAgent),
		OS:          match(osSignatures, userAgent),
		Bot:         containsAnyFold(userAgent, botMarkers),
	}
	if userAgent != "" && p != nil && p.uap != nil {
		client := p.uap.Parse(userAgent)
		if info.Browser == Unknown {
			info.Browser = family(client.UserAgent.Family)
		}
		if info.OS == Unknown {
			info.OS = family(client.Os.Family)
		}
		if client.Device.Family == "Spider" {
			info.Bot = true
		}
	}

	// Crawlers still count as traffic; they are grouped with desktops.
	if info.Bot {
		info.DeviceClass = DeviceDesktop
	}
	return info
}

// DeviceClass classifies by substring signatures. Tablet markers win over the generic
// Mobile token that iPads also send; Android without Mobile is a tablet.
func DeviceClass(userAgent string) string {
	switch {
	case userAgent == "":
		return DeviceDesktop
	case containsAny(userAgent, tabletMarkers):
		return DeviceTablet
	case strings.Contains(userAgent, "Android") && !strings.Contains(userAgent, "Mobile"):
		return DeviceTablet
	case containsAny(userAgent, mobileMarkers):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

func match(table []signature, userAgent string) string {
	for _, sig := range table {
		if strings.Contains(userAgent, sig.marker) {
			return sig.name
		}
	}
	return Unknown
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func containsAnyFold(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

func family(f string) string {
	if f == "" || f == "Other" {
		return Unknown
	}
	return f
}
