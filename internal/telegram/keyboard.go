package telegram

import (
	"fmt"
	"net/url"

	"github.com/go-telegram/bot/models"
)

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// URLButton creates a URL inline keyboard button.
func URLButton(text, url string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text: text,
		URL:  url,
	}
}

// ShareButton opens Telegram's share dialog prefilled with link and text.
func ShareButton(label, link, text string) models.InlineKeyboardButton {
	q := url.Values{}
	q.Set("url", link)
	if text != "" {
		q.Set("text", text)
	}
	return URLButton(label, "https://t.me/share/url?"+q.Encode())
}

// CategoryTabs renders one button per tab except the active one.
func CategoryTabs(tabs []string, active string, label func(string) string, callback func(string) string) []models.InlineKeyboardButton {
	var row []models.InlineKeyboardButton
	for _, t := range tabs {
		if t == active {
			continue
		}
		row = append(row, InlineButton(label(t), callback(t)))
	}
	return row
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// ButtonRow creates a row of inline buttons.
func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// PaginationRow creates a pagination row with prev/next buttons around a
// "cur" page indicator. Pages are zero-based in callback data.
func PaginationRow(currentPage, totalPages int, callbackPrefix string) []models.InlineKeyboardButton {
	var row []models.InlineKeyboardButton

	if currentPage > 0 {
		row = append(row, InlineButton("⬅️", fmt.Sprintf("%s_%d", callbackPrefix, currentPage-1)))
	}

	row = append(row, InlineButton(
		fmt.Sprintf("%d/%d", currentPage+1, totalPages),
		"cur",
	))

	if currentPage < totalPages-1 {
		row = append(row, InlineButton("➡️", fmt.Sprintf("%s_%d", callbackPrefix, currentPage+1)))
	}

	return row
}
