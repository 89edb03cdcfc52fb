package intent

import (
	"context"
	"regexp"

	"github.com/itsivali/virtual-butler/models"
	"github.com/itsivali/virtual-butler/utils"
)

// fallbackRule is one row of the deterministic keyword table. Rules are
// evaluated in order and the first match wins, so a message that mentions
// both towels and food routes to housekeeping.
type fallbackRule struct {
	department string
	pattern    *regexp.Regexp
}

// fallbackTable is the ordered keyword table used whenever the external
// oracle is disabled or fails. Order matters; do not sort.
var fallbackTable = []fallbackRule{
	{models.DeptHousekeeping, regexp.MustCompile(`(?i)towel|housekeep|linen|sheets|pillow|blanket|laundry|amenit|toiletries|soap|shampoo|clean (my |the )?room|room clean`)},
	{models.DeptMaintenance, regexp.MustCompile(`(?i)\ba/?c\b|air.?con|broken|repair|\bfix\b|leak|heating|heater|faucet|toilet|shower|plumb|bulb|lamp`)},
	{models.DeptRoomService, regexp.MustCompile(`(?i)food|breakfast|lunch|dinner|hungry|menu|meal|drink|coffee|sandwich|room service|burger|wine`)},
	{models.DeptIT, regexp.MustCompile(`(?i)wi-?fi|internet|\btv\b|television|remote|connect|network|streaming|chromecast`)},
	{models.DeptFrontDesk, regexp.MustCompile(`(?i)check.?out|check.?in|bill|invoice|receipt|luggage|key.?card|reception|late fee|wake.?up call`)},
	{models.DeptSecurity, regexp.MustCompile(`(?i)\bsafe\b|lost|stolen|theft|suspicious|intruder|locked out|emergency|noise complaint`)},
	{models.DeptConcierge, regexp.MustCompile(`(?i)taxi|\bcab\b|restaurant|reservation|book(ing)?|tour|tickets?|directions|museum|recommend`)},
}

// Classifier resolves a guest message to a department. It never fails: the
// external oracle is tried first when configured, and any oracle problem
// falls through to the keyword table, which always returns something.
type Classifier struct {
	oracle *OracleClient
}

func NewClassifier(oracle *OracleClient) *Classifier {
	return &Classifier{oracle: oracle}
}

// Classify returns the department responsible for the given text.
// conversationID and userID are optional hints forwarded to the oracle.
func (c *Classifier) Classify(ctx context.Context, text, conversationID, userID string) string {
	if c.oracle.Enabled() {
		dept, err := c.oracle.TopIntent(ctx, text, conversationID, userID)
		if err == nil && dept != "" {
			return dept
		}
		if err != nil {
			utils.Log.Debug().Err(err).Msg("classifier oracle unavailable, using keyword fallback")
		}
	}
	return KeywordMatch(text)
}

// KeywordMatch runs the ordered fallback table over the text. Defaults to
// front_desk when nothing matches.
func KeywordMatch(text string) string {
	for _, rule := range fallbackTable {
		if rule.pattern.MatchString(text) {
			return rule.department
		}
	}
	return models.DeptFrontDesk
}
