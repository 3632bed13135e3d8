package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deeptrail/appshell/internal/attribution"
	"github.com/deeptrail/appshell/internal/deeplink"
)

func TestBuildDestinationFullMapping(t *testing.T) {
	f := deeplink.Parse("alice_partner-com_offerA_d1_d2_d3_d4")
	require.NotNil(t, f)

	id := attribution.Identity{
		DeviceAttributionID: "DEV1",
		CampaignFields:      [4]string{"c1", "c2", "c3", "c4"},
	}

	got := BuildDestination("proj-7", f, id)
	want := "https://partner.com/offerA" +
		"?sub1=c1&sub2=c2&sub3=c3&sub4=c4" +
		"&sub5=d1&sub6=d2&sub7=d3&sub8=d4" +
		"&sub9=proj-7&sub10=DEV1"
	assert.Equal(t, want, got)
}

func TestBuildDestinationMissingIdentifierSentinel(t *testing.T) {
	f := deeplink.Parse("alice_partner-com_offerA")
	require.NotNil(t, f)

	got := BuildDestination("proj-7", f, attribution.Identity{})
	assert.Equal(t,
		"https://partner.com/offerA?sub1=&sub2=&sub3=&sub4=&sub5=&sub6=&sub7=&sub8=&sub9=proj-7&sub10=NONE",
		got)
}

func TestBuildDestinationEscapesValues(t *testing.T) {
	f := deeplink.Parse("alice_partner-com_offerA_a b&c")
	require.NotNil(t, f)

	got := BuildDestination("p 1", f, attribution.Identity{DeviceAttributionID: "D/1"})
	assert.Contains(t, got, "sub5=a+b%26c")
	assert.Contains(t, got, "sub9=p+1")
	assert.Contains(t, got, "sub10=D%2F1")
}

func TestBuildDestinationDeterministic(t *testing.T) {
	f := deeplink.Parse("alice_partner-com_offerA_x")
	require.NotNil(t, f)
	id := attribution.Identity{DeviceAttributionID: "DEV1"}

	assert.Equal(t, BuildDestination("proj-7", f, id), BuildDestination("proj-7", f, id))
}
