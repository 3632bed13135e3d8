package attribution

import (
	"strings"

	"github.com/tidwall/gjson"
)

// conversion is the interpreted form of an install-conversion payload.
type conversion struct {
	Status   InstallStatus
	Campaign string
	Subs     [4]string
}

// Alternate key names per field, probed in order; providers have renamed
// these fields across SDK versions, so the first present non-empty key wins.
var (
	statusKeys   = []string{"af_status", "status"}
	campaignKeys = []string{"campaign", "af_campaign", "campaign_name"}
	subKeys      = [4][]string{
		{"af_sub1", "sub1", "campaign_sub1"},
		{"af_sub2", "sub2", "campaign_sub2"},
		{"af_sub3", "sub3", "campaign_sub3"},
		{"af_sub4", "sub4", "campaign_sub4"},
	}
)

// extractConversion interprets a raw install-conversion payload. Missing
// fields degrade to empty strings; a payload without any status key keeps
// StatusUnknown, and the campaign hook fires regardless of status so a
// sparse payload never suppresses the campaign fallback.
func extractConversion(raw []byte) conversion {
	var c conversion

	if s := firstNonEmpty(raw, statusKeys); s != "" {
		if strings.EqualFold(s, "organic") {
			c.Status = StatusOrganic
		} else {
			c.Status = StatusAttributed
		}
	}
	c.Campaign = firstNonEmpty(raw, campaignKeys)
	for i := range subKeys {
		c.Subs[i] = firstNonEmpty(raw, subKeys[i][:])
	}
	return c
}

func firstNonEmpty(raw []byte, keys []string) string {
	for _, k := range keys {
		if v := gjson.GetBytes(raw, k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
