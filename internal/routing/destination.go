// Package routing selects the configured destination for a routing decision.
// The decision itself ("TR" or "REST") comes from the geo resolver; this
// package combines it with the current configuration and a destination kind.
package routing

import (
	"strings"

	"geo-redirector/internal/geo"
	"geo-redirector/internal/settings"
)

// Kind identifies which destination field family to select from.
type Kind string

const (
	// KindMessaging selects the destination phone-style identifier.
	KindMessaging Kind = "messaging"
	// KindChannel selects the destination channel name.
	KindChannel Kind = "channel"
	// KindWebsite selects the destination website URL.
	KindWebsite Kind = "website"
)

// Destination is the per-request routing result: where to send the visitor
// and the merged prefill text.
type Destination struct {
	Routing string `json:"routing"`
	Kind    Kind   `json:"kind"`
	Target  string `json:"target"`
	Text    string `json:"text,omitempty"`
}

// Select picks the Turkey-specific or default destination field for the given
// kind and merges the configured prefill text with any caller-supplied text.
func Select(routing string, kind Kind, cfg settings.Config, extraText string) Destination {
	turkey := routing == geo.RoutingTurkey

	dest := Destination{Routing: routing, Kind: kind}

	var configuredText string
	if turkey {
		configuredText = cfg.TurkeyText
	} else {
		configuredText = cfg.DefaultText
	}

	switch kind {
	case KindMessaging:
		if turkey {
			dest.Target = cfg.TurkeyDestinationNumber
		} else {
			dest.Target = cfg.DefaultDestinationNumber
		}
	case KindChannel:
		if turkey {
			dest.Target = cfg.TurkeyChannelName
		} else {
			dest.Target = cfg.DefaultChannelName
		}
	case KindWebsite:
		if turkey {
			dest.Target = cfg.TurkeyWebsiteURL
		} else {
			dest.Target = cfg.DefaultWebsiteURL
		}
	}

	dest.Text = MergeText(configuredText, extraText)
	return dest
}

// MergeText joins the given text parts with single spaces, dropping empty
// parts and trimming the result. The same merge rule applies to every
// destination kind.
func MergeText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
