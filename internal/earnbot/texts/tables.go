package texts

// Supported language codes
const (
	LangEN = "en"
	LangHI = "hi"
)

var tables = map[string]map[string]string{
	LangEN: {
		"welcome": "👋 Welcome, {name}!\n\n💰 Balance: {balance} points\n🤝 Referrals: {referrals}\n\nEarn points by completing links, inviting friends and joining channels.",
		"menu":    "Choose an option:",
		"balance": "💰 Balance: {balance} points (₹{rupees})\n🔗 Links solved: {solved}\n🤝 Referrals: {referrals}\n📣 Channels joined: {channels}",

		"earn_link":      "🔗 Open this link and complete the steps:\n\n{link}\n\nThen press Check to receive {reward} points.",
		"earn_pending":   "⏳ You already have an open link. Finish it and press Check.",
		"link_done":      "✅ Link completed! {reward} points added to your balance.",
		"link_not_done":  "❌ The link is not completed yet. Finish it and try again.",
		"link_none":      "❌ No open link found. Request a new one.",
		"referral_link":  "🔗 Your referral link:\n\n{link}\n\nYou earn {reward} points for every friend who joins.",
		"referral_bonus": "🎉 {name} joined with your link! {reward} points added.",

		"bonus_intro": "📣 Join these channels and claim your bonus:",
		"claim_ok":    "✅ Bonus claimed! {reward} points added.",
		"claim_dup":   "You already claimed this channel.",
		"not_member":  "❌ You are not a member of this channel yet. Join first, then claim.",
		"join_gate":   "🔒 To use this bot, join our channel first:\n\n{link}\n\nThen send /start again.",

		"withdraw_min":       "❌ You need at least {min} points to withdraw. Current balance: {balance}.",
		"withdraw_method":    "💸 You have {balance} points (₹{rupees}). Choose a payout method:",
		"withdraw_details":   "✍️ Send your {method} payout details (for UPI: your UPI ID).",
		"withdraw_submitted": "🎉 Withdrawal request submitted!\n\n💸 {points} points (₹{rupees}) via {method}.\n\nOur team will review it within a few hours.",
		"withdraw_approved":  "✅ Your withdrawal of ₹{rupees} was approved and is being paid out.",
		"withdraw_paid":      "💸 Your withdrawal of ₹{rupees} was paid. Thank you!",
		"withdraw_rejected":  "❌ Your withdrawal of ₹{rupees} was rejected: {reason}\n\nThe points were returned to your balance.",
		"invalid_details":    "❌ Those payout details look invalid. Please check and send them again.",

		"language_prompt": "🌐 Choose your language:",
		"language_set":    "✅ Language set to English.",

		"invalid_language": "❌ Invalid language selection.",
		"invalid_action":   "❌ That action is not valid.",
		"try_again":        "⚠️ Something went wrong. Please try again later.",
	},
	LangHI: {
		"welcome": "👋 स्वागत है, {name}!\n\n💰 बैलेंस: {balance} पॉइंट\n🤝 रेफरल: {referrals}\n\nलिंक पूरे करके, दोस्तों को बुलाकर और चैनल जॉइन करके पॉइंट कमाएँ।",
		"menu":    "एक विकल्प चुनें:",
		"balance": "💰 बैलेंस: {balance} पॉइंट (₹{rupees})\n🔗 पूरे किए लिंक: {solved}\n🤝 रेफरल: {referrals}\n📣 जॉइन किए चैनल: {channels}",

		"earn_link":      "🔗 यह लिंक खोलें और स्टेप पूरे करें:\n\n{link}\n\nफिर Check दबाकर {reward} पॉइंट पाएँ।",
		"earn_pending":   "⏳ आपका एक लिंक पहले से खुला है। उसे पूरा करके Check दबाएँ।",
		"link_done":      "✅ लिंक पूरा हुआ! {reward} पॉइंट आपके बैलेंस में जोड़ दिए गए।",
		"link_not_done":  "❌ लिंक अभी पूरा नहीं हुआ। पूरा करके फिर कोशिश करें।",
		"link_none":      "❌ कोई खुला लिंक नहीं मिला। नया लिंक लें।",
		"referral_link":  "🔗 आपका रेफरल लिंक:\n\n{link}\n\nहर दोस्त के जुड़ने पर आपको {reward} पॉइंट मिलते हैं।",
		"referral_bonus": "🎉 {name} आपके लिंक से जुड़े! {reward} पॉइंट जोड़ दिए गए।",

		"bonus_intro": "📣 ये चैनल जॉइन करें और बोनस पाएँ:",
		"claim_ok":    "✅ बोनस मिल गया! {reward} पॉइंट जोड़ दिए गए।",
		"claim_dup":   "आपने यह चैनल पहले ही क्लेम कर लिया है।",
		"not_member":  "❌ आप अभी इस चैनल के सदस्य नहीं हैं। पहले जॉइन करें, फिर क्लेम करें।",
		"join_gate":   "🔒 बॉट इस्तेमाल करने के लिए पहले हमारा चैनल जॉइन करें:\n\n{link}\n\nफिर /start भेजें।",

		"withdraw_min":       "❌ निकासी के लिए कम से कम {min} पॉइंट चाहिए। वर्तमान बैलेंस: {balance}।",
		"withdraw_method":    "💸 आपके पास {balance} पॉइंट (₹{rupees}) हैं। भुगतान का तरीका चुनें:",
		"withdraw_details":   "✍️ अपनी {method} भुगतान जानकारी भेजें (UPI के लिए: आपकी UPI ID)।",
		"withdraw_submitted": "🎉 निकासी का अनुरोध भेज दिया गया!\n\n💸 {points} पॉइंट (₹{rupees}), {method} से।\n\nहमारी टीम कुछ घंटों में इसकी समीक्षा करेगी।",
		"withdraw_approved":  "✅ ₹{rupees} की आपकी निकासी मंज़ूर हो गई और भुगतान हो रहा है।",
		"withdraw_paid":      "💸 ₹{rupees} की आपकी निकासी का भुगतान हो गया। धन्यवाद!",
		"withdraw_rejected":  "❌ ₹{rupees} की आपकी निकासी अस्वीकार हुई: {reason}\n\nपॉइंट आपके बैलेंस में वापस कर दिए गए।",
		"invalid_details":    "❌ भुगतान जानकारी सही नहीं लगती। जाँच कर दोबारा भेजें।",

		"language_prompt": "🌐 अपनी भाषा चुनें:",
		"language_set":    "✅ भाषा हिंदी सेट कर दी गई।",

		"invalid_language": "❌ भाषा चयन मान्य नहीं है।",
		"invalid_action":   "❌ यह क्रिया मान्य नहीं है।",
		"try_again":        "⚠️ कुछ गड़बड़ हो गई। कृपया बाद में फिर कोशिश करें।",
	},
}
