package catalog

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/currency"
)

// Callback data prefixes
const (
	CallbackMarketPage = "shop_page:"  // shop_page:w:2 or shop_page:t:0
	CallbackMarketItem = "shop_item:"  // shop_item:chainmail
	CallbackMarketBuy  = "shop_buy:"   // shop_buy:chainmail
	CallbackMarketBack = "shop_cancel" // shop_cancel
)

// Page kinds used in CallbackMarketPage data.
const (
	PageWares  = "w"
	PageTitles = "t"
)

// BuildMarketPanel creates one market page with a button per item and
// prev/next navigation.
func BuildMarketPanel(items []Item, kind string, page, totalPages int) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	var rows []tele.Row
	var currentRow []tele.Btn
	for i, item := range items {
		btn := markup.Data(
			fmt.Sprintf("%s %s", item.Name, currency.Format(item.Price)),
			CallbackMarketItem+string(item.ID),
		)
		currentRow = append(currentRow, btn)

		// 2 buttons per row
		if len(currentRow) == 2 || i == len(items)-1 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}

	var nav []tele.Btn
	if page > 0 {
		nav = append(nav, markup.Data("◀️", fmt.Sprintf("%s%s:%d", CallbackMarketPage, kind, page-1)))
	}
	if page < totalPages-1 {
		nav = append(nav, markup.Data("▶️", fmt.Sprintf("%s%s:%d", CallbackMarketPage, kind, page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, markup.Row(nav...))
	}

	markup.Inline(rows...)
	return markup
}

// BuildConfirmPanel creates the purchase confirmation panel
func BuildConfirmPanel(id ItemID) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	buyBtn := markup.Data("✅ Buy", CallbackMarketBuy+string(id))
	backBtn := markup.Data("↩️ Back", CallbackMarketBack)

	markup.Inline(
		markup.Row(buyBtn, backBtn),
	)
	return markup
}

// FormatMarketMessage creates the market header for one page.
func FormatMarketMessage(title string, items []Item, page, totalPages int, balance int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏪 %s (page %d/%d)\n", title, page+1, max(totalPages, 1))
	b.WriteString("━━━━━━━━━━━━━━━\n")
	for _, item := range items {
		fmt.Fprintf(&b, "• %s: %s\n   %s\n", item.Name, currency.Format(item.Price), item.Use)
	}
	b.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "💰 Thy purse: %s", currency.Format(balance))
	return b.String()
}

// FormatItemDetail creates the item detail message
func FormatItemDetail(item Item, balance int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", item.Name)
	b.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "💰 Price: %s\n", currency.Format(item.Price))
	fmt.Fprintf(&b, "📜 %s\n", item.Description)
	fmt.Fprintf(&b, "✨ Use: %s\n", item.Use)
	if slot := item.Slot(); slot != SlotNone {
		fmt.Fprintf(&b, "🛡️ Slot: %s\n", slot)
	}
	if item.Consumable() {
		b.WriteString("🍖 Consumed on use\n")
	}
	b.WriteString("━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "💰 Thy purse: %s\n", currency.Format(balance))

	if balance < item.Price {
		b.WriteString("❌ Thou canst not afford this!")
	} else {
		b.WriteString("Dost thou wish to buy it?")
	}
	return b.String()
}
