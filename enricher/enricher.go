package enricher

import (
	"net"

	"github.com/mssola/useragent"
	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog/log"

	"analyticshub/api/models"
)

// Enricher fills device and geo fields the tracker payload omits, using
// the User-Agent header and an optional MaxMind GeoIP database.
type Enricher struct {
	geoIP *geoip2.Reader
}

func New(geoIPPath string) *Enricher {
	var geoIP *geoip2.Reader
	if geoIPPath != "" {
		var err error
		geoIP, err = geoip2.Open(geoIPPath)
		if err != nil {
			log.Warn().Err(err).Str("path", geoIPPath).Msg("GeoIP database unavailable, geo enrichment disabled")
			geoIP = nil
		}
	}
	return &Enricher{geoIP: geoIP}
}

// Apply enriches the event in place. Fields already set by the client are
// left alone.
func (e *Enricher) Apply(event *models.Event, userAgentString, clientIP string) {
	if event.DeviceType == "" && userAgentString != "" {
		event.DeviceType = DeviceType(userAgentString)
	}

	if e.geoIP == nil || clientIP == "" || event.Country != "" {
		return
	}
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return
	}
	record, err := e.geoIP.City(ip)
	if err != nil {
		return
	}
	event.Country = record.Country.IsoCode
	if name, ok := record.City.Names["en"]; ok {
		event.City = name
	}
}

// DeviceType classifies a User-Agent as mobile, bot or desktop.
func DeviceType(userAgentString string) string {
	ua := useragent.New(userAgentString)
	if ua.Mobile() {
		return "mobile"
	}
	if ua.Bot() {
		return "bot"
	}
	return "desktop"
}

func (e *Enricher) Close() {
	if e.geoIP != nil {
		e.geoIP.Close()
	}
}
