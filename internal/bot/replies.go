package bot

import (
	"fmt"
	"strings"
	"time"

	"jizhang/internal/core"
	"jizhang/internal/parse"
)

// QuickReply is one tappable suggestion attached to a reply.
type QuickReply struct {
	Label string
	Text  string
}

// Reply is a channel-agnostic outgoing message. A nil *Reply means stay
// silent.
type Reply struct {
	Text         string
	QuickReplies []QuickReply
}

var recordedQuickReplies = []QuickReply{
	{Label: "查詢記錄", Text: "查詢"},
	{Label: "本月摘要", Text: "本月"},
	{Label: "繼續記帳", Text: "記帳"},
}

var helpQuickReplies = []QuickReply{
	{Label: "記帳說明", Text: "記帳"},
	{Label: "查詢記錄", Text: "查詢"},
	{Label: "本月摘要", Text: "本月"},
}

const (
	errBusyText     = "❌ 系統忙碌中，請稍後再試。"
	errNotFoundText = "❌ 找不到這筆記錄，請確認編號。"
	errNotOwnerText = "❌ 這筆記錄不是你的，無法刪除。"
)

func recordedReply(id int64, amount core.Money, reason string) *Reply {
	text := fmt.Sprintf("✅ 記帳成功！\n\n💰 金額: %s 元\n📝 項目: %s\n\n記錄編號: #%d",
		amount.String(), reason, id)
	return &Reply{Text: text, QuickReplies: recordedQuickReplies}
}

func deletedReply(id int64) *Reply {
	return &Reply{Text: fmt.Sprintf("🗑️ 已刪除記錄 #%d。", id)}
}

func recordListReply(records []core.Record, limit int, note parse.LimitNote) *Reply {
	var b strings.Builder

	switch note {
	case parse.LimitTooHigh:
		fmt.Fprintf(&b, "⚠️ 最多只能查詢 %d 筆，已顯示 %d 筆。\n\n", parse.MaxQueryLimit, limit)
	case parse.LimitTooLow:
		fmt.Fprintf(&b, "⚠️ 數量不能小於 1，已顯示預設 %d 筆。\n\n", parse.DefaultQueryLimit)
	}

	if len(records) == 0 {
		b.WriteString("📋 目前沒有支出記錄。")
		return &Reply{Text: b.String()}
	}

	fmt.Fprintf(&b, "📋 最近 %d 筆支出記錄:\n\n", len(records))
	var total core.Money
	for _, r := range records {
		total = total.Add(r.Amount)
		fmt.Fprintf(&b, "#%d - %s\n💰 %s 元 | 📝 %s\n\n",
			r.ID, r.CreatedAt.Format("01/02 15:04"), r.Amount.String(), r.Reason)
	}
	fmt.Fprintf(&b, "總計: %s 元", total.String())

	return &Reply{Text: b.String()}
}

func monthlyReply(year int, month time.Month, total core.Money, count int64) *Reply {
	if count == 0 {
		return &Reply{Text: fmt.Sprintf("📊 %d年%d月目前沒有支出記錄。", year, int(month))}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %d年%d月支出摘要:\n\n", year, int(month))
	fmt.Fprintf(&b, "💳 總支出: %s 元\n", total.String())
	fmt.Fprintf(&b, "📝 總筆數: %d 筆\n", count)
	fmt.Fprintf(&b, "📈 平均: %.1f 元/筆", float64(total.Cents)/float64(count)/100)

	return &Reply{Text: b.String()}
}

func allTimeReply(stats core.AllTimeStats) *Reply {
	if stats.Count == 0 {
		return &Reply{Text: "📊 目前沒有任何支出記錄。"}
	}

	var b strings.Builder
	b.WriteString("📊 歷史支出統計:\n\n")
	fmt.Fprintf(&b, "💳 總支出: %s 元\n", stats.Total.String())
	fmt.Fprintf(&b, "📝 總筆數: %d 筆\n", stats.Count)
	fmt.Fprintf(&b, "📅 期間: %s ~ %s\n",
		stats.First.Format("2006/01/02"), stats.Last.Format("2006/01/02"))

	if len(stats.Monthly) > 0 {
		b.WriteString("\n📆 近月明細:\n")
		for _, m := range stats.Monthly {
			fmt.Fprintf(&b, "• %d年%d月: %s 元 (%d 筆)\n",
				m.Year, int(m.Month), m.Total.String(), m.Count)
		}
	}

	return &Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func currentReply(w core.WindowStats) *Reply {
	if w.Count == 0 {
		return &Reply{Text: fmt.Sprintf("📊 自 %s 起沒有支出記錄。", w.Since.Format("2006/01/02"))}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 目前統計 (自 %s 起):\n\n", w.Since.Format("2006/01/02"))
	fmt.Fprintf(&b, "💳 小計: %s 元\n", w.Total.String())
	fmt.Fprintf(&b, "📝 筆數: %d 筆", w.Count)

	return &Reply{Text: b.String()}
}

func resetConfirmReply(w core.WindowStats) *Reply {
	var b strings.Builder
	b.WriteString("🔄 重置目前統計？\n\n")
	fmt.Fprintf(&b, "自 %s 起累計 %s 元 (%d 筆)。\n\n",
		w.Since.Format("2006/01/02"), w.Total.String(), w.Count)
	b.WriteString("重置只會歸零統計起點，記錄不會刪除。\n輸入「確認重置」執行，或「取消」放棄。")

	return &Reply{Text: b.String(), QuickReplies: []QuickReply{
		{Label: "確認重置", Text: "確認重置"},
		{Label: "取消", Text: "取消"},
	}}
}

func resetDoneReply(snapshot core.WindowStats) *Reply {
	text := fmt.Sprintf("✅ 統計已重置。\n\n上一期自 %s 起共 %s 元 (%d 筆)。\n目前統計重新從零開始。",
		snapshot.Since.Format("2006/01/02"), snapshot.Total.String(), snapshot.Count)
	return &Reply{Text: text}
}

func resetCancelReply() *Reply {
	return &Reply{Text: "👌 已取消，統計維持不變。"}
}

const helpMainText = `🤖 記帳機器人

我可以幫你輕鬆記帳！

🚀 開始使用:
直接傳送包含金額的訊息，例如:
"午餐 120 元"

📋 功能指令:
• "記帳" - 記帳格式說明
• "查詢" - 查看最近記錄
• "本月" - 本月支出摘要
• "/del #編號" - 刪除記錄
• "幫助" - 顯示此說明

💡 小提示:
支援多種金額格式 (元、塊、錢、$、NT$)`

const helpUsageText = `💡 記帳格式說明:

你可以用自然語言記帳，我會自動識別金額！

📝 範例:
• "午餐花了120塊"
• "停車費30元"
• "咖啡 NT$150"
• "星巴克 150"

💡 指令:
• "查詢" - 查看最近記錄
• "查詢 20" - 查看最近 20 筆
• "本月" - 本月支出摘要
• "/del #3" - 刪除編號 3 的記錄
• "幫助" - 顯示說明`

const helpWelcomeText = `👋 你好！我是記帳機器人。

傳送一句包含金額的話就能記帳，例如:
"早餐 65 元"

輸入「幫助」查看完整功能。`

func helpReply(variant parse.HelpVariant) *Reply {
	switch variant {
	case parse.HelpUsage:
		return &Reply{Text: helpUsageText}
	case parse.HelpWelcome:
		return &Reply{Text: helpWelcomeText, QuickReplies: helpQuickReplies}
	default:
		return &Reply{Text: helpMainText, QuickReplies: helpQuickReplies}
	}
}

func suggestFormatReply(text string) *Reply {
	suggestion := fmt.Sprintf(`🤔 我無法從這個訊息中識別出金額:
"%s"

💡 請試試這些格式:
• "[消費內容] [金額]元"
• "花了[金額]元買[物品]"
• "[內容] [金額]塊"

📝 範例:
• "飲料 50元"
• "午餐花了120元"
• "停車費30塊"

或輸入「記帳」查看詳細說明。`, text)

	return &Reply{Text: suggestion}
}
