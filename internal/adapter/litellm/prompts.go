package litellm

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
)

func personaSystem(p agent.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a member of a marketing review board.", nameOr(p))
	if p.Persona != "" {
		fmt.Fprintf(&b, " %s", p.Persona)
	}
	b.WriteString(" Answer with a single JSON object and nothing else.")
	return b.String()
}

const strategistSystem = "You are a senior marketing strategist. Answer with a single JSON object and nothing else."

func nameOr(p agent.Profile) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

func writeBrand(b *strings.Builder, brand agentcap.BrandContext) {
	b.WriteString("Brand:\n")
	fmt.Fprintf(b, "- name: %s\n", brand.Name)
	if brand.Voice != "" {
		fmt.Fprintf(b, "- voice: %s\n", brand.Voice)
	}
	if brand.Audience != "" {
		fmt.Fprintf(b, "- audience: %s\n", brand.Audience)
	}
	if brand.Guidelines != "" {
		fmt.Fprintf(b, "- guidelines: %s\n", brand.Guidelines)
	}
}

func writeContext(b *strings.Builder, ctx map[string]string) {
	if len(ctx) == 0 {
		return
	}
	b.WriteString("Context:\n")
	for _, k := range slices.Sorted(maps.Keys(ctx)) {
		fmt.Fprintf(b, "- %s: %s\n", k, ctx[k])
	}
}

func writeSubject(b *strings.Builder, s agentcap.Subject) {
	writeBrand(b, s.Brand)
	writeContext(b, s.PersonaContext)
	if s.Archetype != "" {
		fmt.Fprintf(b, "Archetype: %s\n", s.Archetype)
	}
	if s.AuthorPersona != "" {
		fmt.Fprintf(b, "Author: %s\n", s.AuthorPersona)
	}
	fmt.Fprintf(b, "\nThe %s under review:\n", kindOr(s.Kind))
	if s.Title != "" {
		fmt.Fprintf(b, "Title: %s\n", s.Title)
	}
	fmt.Fprintf(b, "%s\n\n", s.Body)
}

func kindOr(kind string) string {
	if kind == "" {
		return "pitch"
	}
	return kind
}

func evaluatePrompt(s agentcap.Subject) string {
	var b strings.Builder
	writeSubject(&b, s)
	b.WriteString(`Would you put budget behind this? Reply {"direction": 1} to support it or {"direction": -1} to oppose it.`)
	return b.String()
}

func critiquePrompt(s agentcap.Subject) string {
	var b strings.Builder
	writeSubject(&b, s)
	b.WriteString(`Give one strength and one weakness from your point of view. ` +
		`Reply {"pro": "...", "con": "..."}. Leave a side empty ("") if you have nothing to add.`)
	return b.String()
}

func pitchPrompt(req agentcap.PitchRequest) string {
	var b strings.Builder
	writeBrand(&b, req.Brand)
	if req.Archetype != "" {
		fmt.Fprintf(&b, "Archetype: %s\n", req.Archetype)
	}
	if req.Goal != "" {
		fmt.Fprintf(&b, "Campaign goal: %s\n", req.Goal)
	}
	if req.Memory != "" {
		fmt.Fprintf(&b, "\n%s\n", req.Memory)
	}
	b.WriteString(`Write one campaign pitch. Reply {"title": "...", "body": "...", "archetype": "..."}.`)
	return b.String()
}

func revisionPrompt(req agentcap.RevisionRequest) string {
	var b strings.Builder
	writeBrand(&b, req.Brand)
	fmt.Fprintf(&b, "\nYour pitch %q did not pass the board:\n%s\n\n", req.Title, req.FailedBody)
	b.WriteString("Critiques collected across every earlier version:\n")
	for _, c := range req.Critiques {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	if len(req.DenyTitles) > 0 {
		b.WriteString("\nDo not reuse any of these recently accepted titles:\n")
		for _, t := range req.DenyTitles {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	b.WriteString("\n" + `Rewrite the pitch to answer the critiques. Reply {"title": "...", "body": "..."}.`)
	return b.String()
}

func briefPrompt(req agentcap.BriefRequest) string {
	var b strings.Builder
	writeBrand(&b, req.Brand)
	writeContext(&b, req.PersonaContext)
	if req.Archetype != "" {
		fmt.Fprintf(&b, "Archetype: %s\n", req.Archetype)
	}
	fmt.Fprintf(&b, "\nAccepted pitch %q:\n%s\n\n", req.Title, req.Body)
	b.WriteString(`Produce the creative brief. Reply {"prompts": {"<channel>": "..."}, ` +
		`"copy": {"<channel>": "..."}, "notes": "...", "image_prompt": "..."}. ` +
		`Leave image_prompt empty if no still image is needed.`)
	return b.String()
}

func postMortemPrompt(req agentcap.PostMortemRequest) string {
	var b strings.Builder
	writeBrand(&b, req.Brand)
	fmt.Fprintf(&b, "\nPitch %q:\n%s\n\n", req.Title, req.Body)
	if req.Brief.Notes != "" {
		fmt.Fprintf(&b, "Brief notes: %s\n", req.Brief.Notes)
	}
	b.WriteString("Real-world metrics:\n")
	for _, k := range slices.Sorted(maps.Keys(req.Metrics)) {
		fmt.Fprintf(&b, "- %s: %g\n", k, req.Metrics[k])
	}
	b.WriteString("\n" + `Compare the results with what the pitch promised and the brand expects. ` +
		`Reply {"insights": [{"type": "success"|"failure", "tag": "...", "content": "one sentence", "confidence": 0.0-1.0}]}.`)
	return b.String()
}
