package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"royal-market-bot/internal/catalog"
	"royal-market-bot/internal/currency"
	"royal-market-bot/internal/service"
)

// ShopHandler handles the Royal Market and the player's sack.
type ShopHandler struct {
	shopService *service.ShopService
	ledger      *service.LedgerService
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(shopService *service.ShopService, ledger *service.LedgerService) *ShopHandler {
	return &ShopHandler{
		shopService: shopService,
		ledger:      ledger,
	}
}

// HandleMarket handles /market: the first page of wares.
func (h *ShopHandler) HandleMarket(c tele.Context) error {
	return h.sendPage(c, catalog.PageWares, 0, false)
}

// HandleTitles handles /titles: noble titles for sale.
func (h *ShopHandler) HandleTitles(c tele.Context) error {
	return h.sendPage(c, catalog.PageTitles, 0, false)
}

func (h *ShopHandler) sendPage(c tele.Context, kind string, page int, edit bool) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	acc, err := h.ledger.GetAccount(context.Background(), sender.ID, displayName(sender))
	if err != nil {
		return c.Reply(errorText(err, "visit the market"))
	}

	cat := h.shopService.Catalog()
	items, title := cat.Wares(), "The Royal Market"
	if kind == catalog.PageTitles {
		items, title = cat.Titles(), "Noble Titles"
	}
	shown, page, total := catalog.Page(items, page, catalog.DefaultPageSize)

	msg := catalog.FormatMarketMessage(title, shown, page, total, acc.Balance)
	markup := catalog.BuildMarketPanel(shown, kind, page, total)
	if edit {
		return c.Edit(msg, markup)
	}
	return c.Send(msg, markup)
}

// HandleShopCallback handles market button callbacks.
func (h *ShopHandler) HandleShopCallback(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if c.Callback() == nil || sender == nil {
		return nil
	}
	data := callbackData(c)
	cat := h.shopService.Catalog()

	switch {
	case data == catalog.CallbackMarketBack:
		_ = c.Respond()
		return h.sendPage(c, catalog.PageWares, 0, true)

	case strings.HasPrefix(data, catalog.CallbackMarketPage):
		kind, pageStr, _ := strings.Cut(strings.TrimPrefix(data, catalog.CallbackMarketPage), ":")
		page, _ := strconv.Atoi(pageStr)
		_ = c.Respond()
		return h.sendPage(c, kind, page, true)

	case strings.HasPrefix(data, catalog.CallbackMarketItem):
		item, ok := cat.Get(catalog.ItemID(strings.TrimPrefix(data, catalog.CallbackMarketItem)))
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: "❌ The market sells no such thing."})
		}
		acc, err := h.ledger.GetAccount(ctx, sender.ID, displayName(sender))
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: errorText(err, "visit the market"), ShowAlert: true})
		}
		_ = c.Respond()
		return c.Edit(catalog.FormatItemDetail(item, acc.Balance), catalog.BuildConfirmPanel(item.ID))

	case strings.HasPrefix(data, catalog.CallbackMarketBuy):
		item, ok := cat.Get(catalog.ItemID(strings.TrimPrefix(data, catalog.CallbackMarketBuy)))
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: "❌ The market sells no such thing.", ShowAlert: true})
		}
		if _, err := h.ledger.GetAccount(ctx, sender.ID, displayName(sender)); err != nil {
			return c.Respond(&tele.CallbackResponse{Text: errorText(err, "buy"), ShowAlert: true})
		}
		if _, err := h.shopService.Buy(ctx, sender.ID, item.ID, 1); err != nil {
			return c.Respond(&tele.CallbackResponse{Text: errorText(err, "buy"), ShowAlert: true})
		}
		_ = c.Respond(&tele.CallbackResponse{Text: "✅ Bought " + item.Name})

		kind := catalog.PageWares
		if item.IsTitle() {
			kind = catalog.PageTitles
		}
		return h.sendPage(c, kind, 0, true)
	}
	return nil
}

// HandleBuy handles /buy <item> [quantity].
func (h *ShopHandler) HandleBuy(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /buy <item> [quantity]\nFor example: /buy healing potion 2")
	}
	qty := 1
	if n, err := strconv.Atoi(args[len(args)-1]); err == nil && len(args) > 1 {
		if n <= 0 {
			return c.Reply("❌ The quantity must be positive.")
		}
		if n > service.MaxPurchaseQuantity {
			return c.Reply(fmt.Sprintf("❌ The market sells at most %d of a thing at once.", service.MaxPurchaseQuantity))
		}
		qty = n
		args = args[:len(args)-1]
	}

	item, reply := h.resolve(strings.Join(args, " "))
	if reply != "" {
		return c.Reply(reply)
	}
	if _, err := h.ledger.GetAccount(ctx, sender.ID, displayName(sender)); err != nil {
		return c.Reply(errorText(err, "buy"))
	}
	acc, err := h.shopService.Buy(ctx, sender.ID, item.ID, qty)
	if err != nil {
		return c.Reply(errorText(err, "buy"))
	}
	return c.Reply(fmt.Sprintf("🛍️ Thou boughtest %d × %s for %s.\n👛 Thy purse: %s",
		qty, item.Name, currency.Format(item.Price*int64(qty)), currency.Format(acc.Balance)))
}

// HandleSack handles /sack: the player's belongings.
func (h *ShopHandler) HandleSack(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	sack, err := h.shopService.Sack(context.Background(), sender.ID)
	if err != nil {
		return c.Reply(errorText(err, "open thy sack"))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎒 %s's Sack\n%s\n", displayName(sender), divider)
	if len(sack) == 0 {
		b.WriteString("Thy sack is empty\n")
	}
	for _, e := range sack {
		fmt.Fprintf(&b, "• %s × %d", e.Item.Name, e.Quantity)
		if e.Equipped {
			b.WriteString(" (equipped)")
		}
		b.WriteString("\n")
	}
	b.WriteString(divider)
	return c.Reply(b.String())
}

// HandleUse handles /use <item>.
func (h *ShopHandler) HandleUse(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if len(c.Args()) < 1 {
		return c.Reply("❌ Usage: /use <item>")
	}
	item, reply := h.resolve(strings.Join(c.Args(), " "))
	if reply != "" {
		return c.Reply(reply)
	}

	res, err := h.shopService.Use(context.Background(), sender.ID, item.ID)
	if err != nil {
		return c.Reply(errorText(err, "use that"))
	}
	switch {
	case res.Healed > 0:
		return c.Reply(fmt.Sprintf("🧪 Thou drinkest the %s and recoverest %d health. ❤️ %d",
			item.Name, res.Healed, res.Account.Health))
	case res.Account != nil:
		return c.Reply(fmt.Sprintf("🧪 Thou drinkest the %s, but thou art already hale. ❤️ %d",
			item.Name, res.Account.Health))
	case res.Consumed:
		return c.Reply(fmt.Sprintf("🍖 Thou consumest the %s. %s.", item.Name, item.Use))
	default:
		return c.Reply(fmt.Sprintf("✨ Thou admirest thy %s. %s.", item.Name, item.Use))
	}
}

// HandleEquip handles /equip <item>.
func (h *ShopHandler) HandleEquip(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if len(c.Args()) < 1 {
		return c.Reply("❌ Usage: /equip <item>")
	}
	item, reply := h.resolve(strings.Join(c.Args(), " "))
	if reply != "" {
		return c.Reply(reply)
	}

	ok, err := h.shopService.Equip(context.Background(), sender.ID, item.ID)
	if err != nil {
		return c.Reply(errorText(err, "equip that"))
	}
	if !ok {
		return c.Reply(fmt.Sprintf("❌ Thou hast no %s.", item.Name))
	}
	return c.Reply(fmt.Sprintf("🛡️ Thou equippest the %s.", item.Name))
}

// HandleUnequip handles /unequip <item>.
func (h *ShopHandler) HandleUnequip(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	if len(c.Args()) < 1 {
		return c.Reply("❌ Usage: /unequip <item>")
	}
	item, reply := h.resolve(strings.Join(c.Args(), " "))
	if reply != "" {
		return c.Reply(reply)
	}

	if err := h.shopService.Unequip(context.Background(), sender.ID, item.ID); err != nil {
		return c.Reply(errorText(err, "unequip that"))
	}
	return c.Reply(fmt.Sprintf("🎒 Thou stowest the %s in thy sack.", item.Name))
}

// resolve finds a catalog item by name. On failure it returns a reply with
// suggestions instead.
func (h *ShopHandler) resolve(name string) (catalog.Item, string) {
	cat := h.shopService.Catalog()
	if item, ok := cat.Lookup(name); ok {
		return item, ""
	}
	suggestions := cat.Suggest(name)
	if len(suggestions) == 0 {
		return catalog.Item{}, "❌ The market sells no such thing. See /market."
	}
	names := make([]string, 0, len(suggestions))
	for _, id := range suggestions {
		if item, ok := cat.Get(id); ok {
			names = append(names, item.Name)
		}
	}
	return catalog.Item{}, "❓ Didst thou mean: " + strings.Join(names, ", ") + "?"
}
