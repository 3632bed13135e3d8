package resolver

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/deeptrail/appshell/internal/attribution"
	"github.com/deeptrail/appshell/internal/deeplink"
)

// NoIdentifier is the sentinel sub10 value when the device attribution
// identifier never resolved.
const NoIdentifier = "NONE"

// BuildDestination constructs the destination URL for a parsed deep link.
// The query parameter mapping is fixed: sub1-sub4 carry the attribution
// campaign fields, sub5-sub8 the deep-link payload subs, sub9 the project
// id, and sub10 the device attribution id. Parameter order never changes;
// downstream tracking depends on it.
func BuildDestination(projectID string, f *deeplink.Fields, id attribution.Identity) string {
	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(f.Domain)
	b.WriteString("/")
	b.WriteString(f.Alias)

	slot := 1
	write := func(val string) {
		if slot == 1 {
			b.WriteString("?")
		} else {
			b.WriteString("&")
		}
		b.WriteString("sub")
		b.WriteString(strconv.Itoa(slot))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(val))
		slot++
	}

	for i := 0; i < 4; i++ {
		write(id.CampaignFields[i])
	}
	for i := 0; i < 4; i++ {
		write(f.Sub(i))
	}
	write(projectID)

	device := id.DeviceAttributionID
	if device == "" {
		device = NoIdentifier
	}
	write(device)

	return b.String()
}
