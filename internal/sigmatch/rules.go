package sigmatch

import "regexp"

// Rule is one detection row: a honeypot phrase matched by containment or a
// structural signature matched by regex. Adding a category means adding a
// row here, never new control flow.
type Rule struct {
	Name    string
	Kind    RuleKind
	Phrase  string  // honeypot containment, lowercase
	Pattern string  // structural regex
	Weight  float64 // abuse-score bump applied per hit by the ledger
	re      *regexp.Regexp
}

type RuleKind string

const (
	KindHoneypot  RuleKind = "honey"
	KindStructure RuleKind = "sig"
)

// Curated known-bad intents. Matched by exact case-insensitive substring
// containment so a planted phrase cannot hide behind regex edge cases.
func honeypotDefs() []Rule {
	return []Rule{
		{Name: "bypass_sup", Kind: KindHoneypot, Phrase: "bypass sup", Weight: 0.5},
		{Name: "deepfake_ceo_voice", Kind: KindHoneypot, Phrase: "deepfake voice of ceo", Weight: 0.5},
		{Name: "pump_and_dump", Kind: KindHoneypot, Phrase: "pump and dump", Weight: 0.5},
		{Name: "free_money", Kind: KindHoneypot, Phrase: "free money", Weight: 0.5},
		{Name: "guaranteed_profit", Kind: KindHoneypot, Phrase: "guaranteed profit", Weight: 0.5},
		{Name: "thousand_pct_return", Kind: KindHoneypot, Phrase: "1000% return", Weight: 0.5},
		{Name: "credential_stuffing", Kind: KindHoneypot, Phrase: "credential stuffing", Weight: 0.5},
		{Name: "fake_reviews", Kind: KindHoneypot, Phrase: "write fake reviews", Weight: 0.5},
		{Name: "impersonate_support", Kind: KindHoneypot, Phrase: "impersonate support", Weight: 0.5},
		{Name: "drain_wallet", Kind: KindHoneypot, Phrase: "drain their wallet", Weight: 0.5},
	}
}

// Structural attack patterns in prompt or copy.
func structureDefs() []Rule {
	return []Rule{
		{Name: "b64_html", Kind: KindStructure, Pattern: `(?i)data:text/html;base64,[A-Za-z0-9+/=]{16,}`, Weight: 0.5},
		{Name: "onerror_handler", Kind: KindStructure, Pattern: `(?i)\bonerror\s*=`, Weight: 0.5},
		{Name: "doc_write", Kind: KindStructure, Pattern: `(?i)document\.write\s*\(`, Weight: 0.5},
		{Name: "tunnel_domain", Kind: KindStructure, Pattern: `(?i)\b[a-z0-9.-]*(?:ngrok\.io|ngrok-free\.app|trycloudflare\.com|serveo\.net|localtunnel\.me)\b`, Weight: 0.5},
		{Name: "link_shortener", Kind: KindStructure, Pattern: `(?i)\b(?:bit\.ly|tinyurl\.com|t\.co|goo\.gl|is\.gd|cutt\.ly)/\S+`, Weight: 0.5},
		{Name: "cred_harvest", Kind: KindStructure, Pattern: `(?i)\b(?:verify\s+your\s+(?:account|identity)|confirm\s+your\s+password|seed\s+phrase|recovery\s+phrase|private\s+key)\b`, Weight: 0.5},
	}
}
