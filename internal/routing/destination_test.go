package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"geo-redirector/internal/geo"
	"geo-redirector/internal/settings"
)

func testConfig() settings.Config {
	return settings.Config{
		DefaultDestinationNumber: "14155550100",
		TurkeyDestinationNumber:  "905551234567",
		DefaultText:              "Hello",
		TurkeyText:               "Merhaba",
		DefaultChannelName:       "global_news",
		TurkeyChannelName:        "turkiye_haber",
		DefaultWebsiteURL:        "https://example.com",
		TurkeyWebsiteURL:         "https://example.com.tr",
	}
}

func TestSelect(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name       string
		routing    string
		kind       Kind
		extraText  string
		wantTarget string
		wantText   string
	}{
		{"turkey messaging", geo.RoutingTurkey, KindMessaging, "", "905551234567", "Merhaba"},
		{"default messaging", geo.RoutingRest, KindMessaging, "", "14155550100", "Hello"},
		{"turkey channel", geo.RoutingTurkey, KindChannel, "", "turkiye_haber", "Merhaba"},
		{"default channel", geo.RoutingRest, KindChannel, "", "global_news", "Hello"},
		{"turkey website", geo.RoutingTurkey, KindWebsite, "", "https://example.com.tr", "Merhaba"},
		{"default website", geo.RoutingRest, KindWebsite, "", "https://example.com", "Hello"},
		{"extra text appended", geo.RoutingTurkey, KindMessaging, "ref=ad1", "905551234567", "Merhaba ref=ad1"},
		{"extra text alone", geo.RoutingRest, KindMessaging, "ref=ad1", "14155550100", "Hello ref=ad1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := Select(tt.routing, tt.kind, cfg, tt.extraText)
			assert.Equal(t, tt.routing, dest.Routing)
			assert.Equal(t, tt.kind, dest.Kind)
			assert.Equal(t, tt.wantTarget, dest.Target)
			assert.Equal(t, tt.wantText, dest.Text)
		})
	}
}

func TestSelect_EmptyConfiguredText(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultText = ""

	dest := Select(geo.RoutingRest, KindMessaging, cfg, "just this")
	assert.Equal(t, "just this", dest.Text)

	dest = Select(geo.RoutingRest, KindMessaging, cfg, "")
	assert.Equal(t, "", dest.Text)
}

func TestMergeText(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"both set", []string{"Hello", "world"}, "Hello world"},
		{"first empty", []string{"", "world"}, "world"},
		{"second empty", []string{"Hello", ""}, "Hello"},
		{"all empty", []string{"", ""}, ""},
		{"whitespace only", []string{"  ", "\t"}, ""},
		{"trims parts", []string{"  Hello  ", "  world  "}, "Hello world"},
		{"no parts", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeText(tt.parts...))
		})
	}
}
