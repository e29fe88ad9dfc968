package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// applyResourceBlocking fails requests for the configured resource types.
// Panels only need scripts, XHR and the document itself to render rows.
func applyResourceBlocking(page *rod.Page, types []string) error {
	blocked := blockSet(types)
	router := page.HijackRequests()

	err := router.Add("*", "", func(h *rod.Hijack) {
		if blocked[string(h.Request.Type())] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return err
	}

	go router.Run()
	return nil
}

// blockSet maps configured names (images, fonts, media, stylesheets) to
// CDP resource types.
func blockSet(types []string) map[string]bool {
	names := map[string]proto.NetworkResourceType{
		"images":      proto.NetworkResourceTypeImage,
		"fonts":       proto.NetworkResourceTypeFont,
		"media":       proto.NetworkResourceTypeMedia,
		"stylesheets": proto.NetworkResourceTypeStylesheet,
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if rt, ok := names[t]; ok {
			set[string(rt)] = true
			continue
		}
		// Raw CDP type names pass through (e.g. "Other", "Ping").
		set[strings.ToUpper(t[:1])+t[1:]] = true
	}
	return set
}
