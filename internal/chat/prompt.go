package chat

import (
	"fmt"
	"strings"

	"backend/internal/clients"
	"backend/internal/models"
)

const systemPersona = "You are KrushiMitra, an agricultural assistant for Indian farmers. " +
	"Give practical, season-aware advice on crops, soil, irrigation, pests and market decisions. " +
	"Answer in the farmer's language and keep answers short enough to read on a phone."

// buildMessages assembles the completion request: one system message carrying
// persona plus everything known about the farmer, the recent conversation
// window as real chat turns, and finally the new query.
func buildMessages(userCtx *models.UserContext, memory []models.MemoryEntry, query, language string) []clients.ChatMessage {
	var system strings.Builder
	system.WriteString(systemPersona)

	if language != "" {
		fmt.Fprintf(&system, "\nRespond in: %s.", language)
	}

	if userCtx != nil {
		if line := profileLine(userCtx.Profile); line != "" {
			system.WriteString("\nFarmer profile: " + line)
		}
		if userCtx.Location != nil && !userCtx.Location.Empty() {
			system.WriteString("\nLocation: " + locationLine(userCtx.Location))
		}
		if userCtx.Weather != nil && !userCtx.Weather.Empty() {
			system.WriteString("\nCurrent weather: " + weatherLine(userCtx.Weather))
		}
	}

	if len(memory) > 0 {
		system.WriteString("\nEarlier conversation notes:")
		for _, entry := range memory {
			fmt.Fprintf(&system, "\n- [%s] %s", entry.Role, entry.Content)
		}
	}

	messages := []clients.ChatMessage{{Role: "system", Content: system.String()}}

	if userCtx != nil {
		for _, turn := range userCtx.RecentTurns {
			messages = append(messages, clients.ChatMessage{Role: turn.Role, Content: turn.Message})
		}
	}

	return append(messages, clients.ChatMessage{Role: "user", Content: query})
}

func profileLine(p models.Profile) string {
	var parts []string
	if p.Name != "" {
		parts = append(parts, "name "+p.Name)
	}
	if p.LandSize != "" {
		parts = append(parts, "land "+p.LandSize)
	}
	if p.SoilType != "" {
		parts = append(parts, "soil "+p.SoilType)
	}
	if len(p.Crops) > 0 {
		parts = append(parts, "crops "+strings.Join(p.Crops, ", "))
	}
	return strings.Join(parts, "; ")
}

func locationLine(l *models.Location) string {
	if l.Address != "" {
		return l.Address
	}
	if l.Latitude != nil && l.Longitude != nil {
		return fmt.Sprintf("%.4f, %.4f", *l.Latitude, *l.Longitude)
	}
	return l.Raw
}

func weatherLine(w *models.Weather) string {
	var parts []string
	if w.Condition != "" {
		parts = append(parts, w.Condition)
	}
	if w.Temperature != nil {
		parts = append(parts, fmt.Sprintf("%.0f°C", *w.Temperature))
	}
	if w.Humidity != nil {
		parts = append(parts, fmt.Sprintf("humidity %.0f%%", *w.Humidity))
	}
	if w.WindSpeed != nil {
		parts = append(parts, fmt.Sprintf("wind %.0f km/h", *w.WindSpeed))
	}
	if w.PrecipitationProbability != nil {
		parts = append(parts, fmt.Sprintf("rain chance %.0f%%", *w.PrecipitationProbability))
	}
	return strings.Join(parts, ", ")
}
