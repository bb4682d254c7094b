package gate

import (
	"fmt"
	"html"

	"github.com/magabrotheeeer/cardgate-bot/internal/models"
	"github.com/magabrotheeeer/cardgate-bot/internal/telegram"
)

const divider = "━━━━━━━━━━━━━"

// mention формирует HTML-ссылку на пользователя для подписи результата.
func mention(u *telegram.User) string {
	name := u.FullName()
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, html.EscapeString(name))
}

// startMessageText — стартовое меню; для незарегистрированного пользователя
// предлагает регистрацию, для зарегистрированного показывает баланс
// ("∞" у привилегированных).
func startMessageText(u *telegram.User, registered bool, user *models.User) string {
	base := "<b>CARD GATE | Version - 1.0</b>\n" +
		divider + "\n" +
		fmt.Sprintf("Hello, <b>%s</b>! How can I help you today? ✨\n\n", html.EscapeString(u.FirstName)) +
		fmt.Sprintf("👤 <b>User ID</b> ⌁ <code>%d</code>\n", u.ID) +
		"🤖 <b>BOT Status</b> ⌁ <b>UP</b> ✅\n\n"
	if !registered {
		return base +
			"📝 <b>Registration Required</b>\n" +
			"Tap <b>Register</b> below to get started and receive free credits! 🎁\n"
	}
	credits := "∞"
	if !user.IsAdmin {
		credits = fmt.Sprintf("%d", user.Credits)
	}
	return base +
		fmt.Sprintf("💰 <b>Credits</b> ⌁ %s\n\n", credits) +
		"🔗 Explore: Use the buttons below to discover all features.\n"
}

func commandsMenuText() string {
	return "🧭 <b>COMMANDS</b>\n" + divider + "\nChoose a section below."
}

func gatesMenuText() string {
	return "🛠️ <b>GATES</b>\n" + divider + "\nPick a gate to start checking."
}

func creditsText(user *models.User) string {
	credits := "∞"
	if !user.IsAdmin {
		credits = fmt.Sprintf("%d", user.Credits)
	}
	return "💰 <b>CREDITS</b>\n" + divider + fmt.Sprintf("\n• <b>Balance</b> ⌁ %s", credits)
}

func cardGateInfoText() string {
	return "⚡ <b>CCN AUTH GATE</b>\n" +
		divider + "\n" +
		"• <b>What it does</b> ⌁ Authorizes card details against gateway.\n" +
		"• <b>How to use</b> ⌁ Send: <code>/ccn cc|mm|yyyy|cvv</code>\n" +
		"• <b>Status</b> ⌁ Active ✅\n" +
		divider
}

func batchGateInfoText() string {
	return "📦 <b>MASS CCN GATE</b>\n" +
		divider + "\n" +
		"• <b>What it does</b> ⌁ Mass checking\n" +
		"• <b>How to use</b> ⌁ Send: <code>/mccn</code> cards\n" +
		"• <b>Limit</b> ⌁ Max 5\n" +
		"• <b>Status</b> ⌁ Active ✅\n" +
		divider
}

func maintenanceText() string {
	return "🛠️ Bot is under maintenance. Please try again later."
}

func insufficientText() string {
	return "🚫 <b>Insufficient Credits</b>\n" + divider +
		"\nYou don't have enough credits for this check.\nContact the owner to top up."
}

func bannedText(left string) string {
	if left == "" {
		return "⛔ You are banned."
	}
	return "⛔ You are banned. Time left: " + left
}

// binBlock — блок BIN-метаданных, дописываемый к результату проверки.
func binBlock(bin6 string, info map[string]string) string {
	get := func(key string) string {
		if v, ok := info[key]; ok && v != "" {
			return v
		}
		return "N/A"
	}
	return "\n" + divider + "\n" +
		"🔗 <b>BIN DETAILS</b>\n" +
		fmt.Sprintf("• <b>Bin</b> ⌁ (%s)\n", bin6) +
		fmt.Sprintf("• <b>Info</b> ⌁ %s - %s - %s\n", get("Card Brand"), get("Card Type"), get("Card Level")) +
		fmt.Sprintf("• <b>Bank</b> ⌁ %s\n", get("Issuer Name / Bank")) +
		fmt.Sprintf("• <b>Country</b> ⌁ %s\n", get("Country")) +
		divider
}

// outcomeHead — заголовок результата по исходу классификации.
func outcomeHead(outcome models.Outcome) string {
	switch outcome {
	case models.OutcomeApproved:
		return "✅ <b>Approved</b>"
	case models.OutcomeChallenge:
		return "⚠️ <b>3D Card</b>"
	default:
		return "❌ <b>Declined</b>"
	}
}

func singleResultText(head, canonical, message, binInfo string, checkedBy string) string {
	return head + "\n" +
		divider + "\n" +
		fmt.Sprintf("💳 <code>%s</code>\n", canonical) +
		fmt.Sprintf("╰┈➤ <b>%s</b>", html.EscapeString(message)) +
		binInfo +
		"\n🆔 <b>Checked by:</b> " + checkedBy
}

func batchLine(head, canonical, message string) string {
	return head + "\n" +
		fmt.Sprintf("💳 <code>%s</code>\n", canonical) +
		fmt.Sprintf("╰┈➤ <b>%s</b>\n", html.EscapeString(message)) +
		divider
}

func unableToProcessText(base string) string {
	return base + "\n<b>Unable to process the card at the moment.</b>"
}
