package keyboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Proton-105/payout-bot/internal/i18n"
)

// TotalPages returns how many pages of size items are needed, at least one.
func TotalPages(items, size int) int {
	if size < 1 || items <= size {
		return 1
	}
	return (items + size - 1) / size
}

// PaginationButtons returns the prev, current and next buttons for a paged
// list. Each button carries the target page number as data.
func PaginationButtons(t i18n.Translator, action string, page, totalPages int) []InlineButton {
	totalPages = max(totalPages, 1)
	page = min(max(page, 1), totalPages)

	buttons := make([]InlineButton, 0, 3)
	if page > 1 {
		buttons = append(buttons, pageButton(orDefault(t, "pagination.prev", "◀️"), action, page-1))
	}

	buttons = append(buttons, pageButton(pageLabel(t, page, totalPages), action, page))

	if page < totalPages {
		buttons = append(buttons, pageButton(orDefault(t, "pagination.next", "▶️"), action, page+1))
	}

	return buttons
}

func pageButton(text, action string, page int) InlineButton {
	return InlineButton{Text: text, Unique: action, Data: strconv.Itoa(page)}
}

func orDefault(t i18n.Translator, key, fallback string) string {
	if t == nil {
		return fallback
	}
	if text := strings.TrimSpace(t.T(key)); text != "" && text != key {
		return text
	}
	return fallback
}

func pageLabel(t i18n.Translator, page, total int) string {
	format := orDefault(t, "pagination.page", "%d/%d")
	if strings.Count(format, "%d") != 2 {
		format = "%d/%d"
	}
	return fmt.Sprintf(format, page, total)
}
