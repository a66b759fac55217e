package analysis

import (
	"errors"
	"strings"

	"trustmail_server/core/domain"
)

// ErrNilMessage is returned when Analyze receives no message.
var ErrNilMessage = errors.New("analysis: nil message")

// Signal names attached to analyzed emails.
const (
	SignalBulkHeader        = "heuristic:bulk-header"
	SignalListUnsubscribe   = "heuristic:list-unsubscribe"
	SignalAutoSubmitted     = "heuristic:auto-submitted"
	SignalNoReplySender     = "heuristic:noreply-sender"
	SignalTrustedDomain     = "heuristic:trusted-domain"
	SignalSuspiciousSubject = "heuristic:suspicious-subject"
	SignalSuspiciousBody    = "heuristic:suspicious-body"
	SignalFreemailLookalike = "heuristic:freemail-lookalike"
	SignalESPCampaign       = "heuristic:esp-campaign"
	SignalLLMScored         = "llm:scored"
)

// trustedDomains are well-known senders that raise trust on exact suffix
// match of the From address domain.
var trustedDomains = []string{
	"github.com",
	"google.com",
	"accounts.google.com",
	"microsoft.com",
	"apple.com",
	"linkedin.com",
	"stripe.com",
	"atlassian.com",
}

// suspiciousSubjectPhrases mark likely phishing or scam subjects.
var suspiciousSubjectPhrases = []string{
	"verify your account",
	"account suspended",
	"password expire",
	"urgent action required",
	"you have won",
	"lottery",
	"wire transfer",
	"confirm your identity",
	"unusual sign-in",
	"invoice attached",
}

// suspiciousBodyPhrases are checked against the plain-text body and snippet.
var suspiciousBodyPhrases = []string{
	"click here immediately",
	"send us your password",
	"gift card",
	"crypto wallet",
	"western union",
}

// espHeaders identify bulk-mail service providers. Their presence marks a
// campaign message, which is a mild trust reduction, not a phishing signal.
var espHeaders = []string{
	"X-MC-User",           // Mailchimp
	"X-SG-EID",            // SendGrid
	"X-SES-Outgoing",      // Amazon SES
	"X-Mailgun-Variables", // Mailgun
	"X-PM-Message-Id",     // Postmark
	"X-Campaign-ID",
}

type heuristicResult struct {
	score   float64
	signals []string
}

// scoreHeuristics computes the stage-1 trust score from headers, sender and
// subject. The score starts neutral at 0.5 and moves per signal; the caller
// clamps to [0,1].
func scoreHeuristics(msg *domain.MessageDetail) heuristicResult {
	score := 0.5
	var signals []string

	fromDomain := senderDomain(msg.FromEmail)
	subject := strings.ToLower(msg.Subject)
	body := strings.ToLower(msg.BodyText)
	if body == "" {
		body = strings.ToLower(msg.Snippet)
	}

	// Sender reputation
	if fromDomain != "" {
		for _, d := range trustedDomains {
			if fromDomain == d || strings.HasSuffix(fromDomain, "."+d) {
				score += 0.30
				signals = append(signals, SignalTrustedDomain)
				break
			}
		}
	}

	if isNoReplySender(msg.FromEmail) {
		// Automated senders are usually legitimate notifications.
		score += 0.10
		signals = append(signals, SignalNoReplySender)
	}

	// RFC bulk-mail headers
	if header(msg, "List-Unsubscribe") != "" {
		score += 0.05
		signals = append(signals, SignalListUnsubscribe)
	}
	if p := strings.ToLower(header(msg, "Precedence")); p == "bulk" || p == "list" || p == "junk" {
		score -= 0.05
		signals = append(signals, SignalBulkHeader)
	}
	if header(msg, "Auto-Submitted") != "" {
		score += 0.05
		signals = append(signals, SignalAutoSubmitted)
	}
	for _, h := range espHeaders {
		if header(msg, h) != "" {
			score -= 0.05
			signals = append(signals, SignalESPCampaign)
			break
		}
	}

	// Content signals
	for _, phrase := range suspiciousSubjectPhrases {
		if strings.Contains(subject, phrase) {
			score -= 0.35
			signals = append(signals, SignalSuspiciousSubject)
			break
		}
	}
	for _, phrase := range suspiciousBodyPhrases {
		if strings.Contains(body, phrase) {
			score -= 0.25
			signals = append(signals, SignalSuspiciousBody)
			break
		}
	}

	// A display name that embeds a well-known brand while the address is a
	// freemail account is a classic spoof.
	if freemailLookalike(msg.FromName, fromDomain) {
		score -= 0.30
		signals = append(signals, SignalFreemailLookalike)
	}

	return heuristicResult{score: score, signals: signals}
}

var noReplyPatterns = []string{
	"noreply", "no-reply", "donotreply", "do-not-reply",
	"mailer-daemon", "notifications@", "notification@", "alert@", "alerts@",
}

func isNoReplySender(email string) bool {
	lower := strings.ToLower(email)
	for _, p := range noReplyPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

var freemailDomains = []string{
	"gmail.com", "outlook.com", "hotmail.com", "yahoo.com", "proton.me",
}

var brandNames = []string{
	"paypal", "apple", "amazon", "google", "microsoft", "bank",
}

func freemailLookalike(fromName, fromDomain string) bool {
	freemail := false
	for _, d := range freemailDomains {
		if fromDomain == d {
			freemail = true
			break
		}
	}
	if !freemail {
		return false
	}
	name := strings.ToLower(fromName)
	for _, brand := range brandNames {
		if strings.Contains(name, brand) {
			return true
		}
	}
	return false
}

func senderDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func header(msg *domain.MessageDetail, name string) string {
	if msg.Headers == nil {
		return ""
	}
	return msg.Headers[name]
}
