package extractor

import (
	"context"
	"fmt"
	"regexp"

	"github.com/avoronin/servicem8-relay/internal/logger"
	"github.com/avoronin/servicem8-relay/internal/record"
	"github.com/avoronin/servicem8-relay/internal/utils"
)

// Endpoint token names recognized on the dispatch board.
const (
	tokenCalendarStore  = "CalendarStoreRequest"
	tokenUpdateReminder = "UpdateReminderForJobActivity"
	tokenSaveRecurring  = "SaveRecurringJobSchedule"
	// tokenGeneral is the catch-all token used when no endpoint-specific token was found.
	tokenGeneral = "GeneralAuth"
)

// Assembled endpoint URL prefixes. The s_form_values lists mirror the query
// strings the dispatch board itself generates for these calls.
const (
	calendarStoreURLPrefix = "https://go.servicem8.com/CalendarStoreRequest" +
		"?s_cv=&s_form_values=query-start-limit-_dc-callback-records-xaction-end-id-strJobUUID&s_auth="

	updateReminderURLPrefix = "https://ap-southeast-2.go.servicem8.com/PluginReminders_UpdateReminderForJobActivity" +
		"?s_form_values=strReminderUUID-strOriginalStartDate-strOriginalEndDate-strOriginalStaffUUID" +
		"-strNewStartDate-strNewEndDate-strNewStaffUUID-strNewStaffUUIDList" +
		"-boolModifyAllFollowingRecurrences&s_auth="

	saveRecurringURLPrefix = "https://ap-southeast-2.go.servicem8.com/PluginReminders_SaveRecurringJobSchedule" +
		"?s_form_values=strReminderUUID-strCustomerUUID-strJobTemplateUUID-strAlertMode" +
		"-strAllocationWindowUUID-strScheduledStartTime-intScheduledDuration-strStaffUUID-strStaffUUIDList" +
		"-strAlertDescription-strRecurrenceType-strDailyMode-strWeeklyMode-strMonthlyMode-strYearlyMode" +
		"-intDailyInterval-intWeeklyInterval-intWeeklyWeeksAfterCompletion-arrWeeklyDayNames" +
		"-intMonthlyDayEveryMonth-intMonthlyDayEveryMonthInterval-strMonthlyMode2WeekType" +
		"-intMonthlyMode2DayName-intMonthlyMode2MonthInterval-strYearlyMode2WeekType-intYearlyMode1Month" +
		"-intYearlyMode1Day-intYearlyMode2DayName-intYearlyMode2Month-strPatternStartDate" +
		"-strPatternEndDateMode-strPatternEndDate-intPatternEndDateOccurrences-boolCancelReminder&s_auth="
)

// tokenGroupName is the named capture group holding the token value.
const tokenGroupName = "token"

var (
	// endpointTokenPatterns match endpoint-specific s_auth tokens embedded in page scripts.
	//nolint:gochecknoglobals // These are immutable, pre-compiled regex patterns and used as constants.
	endpointTokenPatterns = map[string]*regexp.Regexp{
		tokenCalendarStore:  regexp.MustCompile(`(?i)CalendarStoreRequest[^'"]*s_auth=(?P<token>[a-f0-9]+)`),
		tokenUpdateReminder: regexp.MustCompile(`(?i)UpdateReminderForJobActivity[^'"]*s_auth=(?P<token>[a-f0-9]+)`),
		tokenSaveRecurring:  regexp.MustCompile(`(?i)SaveRecurringJobSchedule[^'"]*s_auth=(?P<token>[a-f0-9]+)`),
	}

	// generalTokenPattern matches any s_auth token, used as a fallback.
	//nolint:gochecknoglobals // This is immutable, pre-compiled regex pattern and used as a constant.
	generalTokenPattern = regexp.MustCompile(`(?i)s_auth=(?P<token>[a-f0-9]+)`)
)

// collectPageTextJS gathers every piece of page text that can carry an
// s_auth token: script tag bodies and string-valued window properties.
const collectPageTextJS = `() => {
	const texts = [];

	for (const script of document.getElementsByTagName('script')) {
		const content = script.innerHTML || script.textContent || '';
		if (content.includes('s_auth=')) {
			texts.push(content);
		}
	}

	for (const prop in window) {
		try {
			const value = window[prop];
			if (typeof value === 'string' && value.includes('s_auth=')) {
				texts.push(value);
			}
		} catch (e) {
			// Some window properties cannot be read.
		}
	}

	return texts;
}`

// pageDebugInfoJS summarizes the page for debug logging.
const pageDebugInfoJS = `() => ({
	url: window.location.href,
	title: document.title,
	scriptCount: document.getElementsByTagName('script').length,
	hasAuthToken: document.body.innerHTML.includes('s_auth='),
	pageLength: document.body.innerHTML.length,
})`

// extractAuthTokens scans the loaded dispatch board for s_auth tokens.
func (s *ServiceImpl) extractAuthTokens(ctx context.Context) (map[string]string, error) {
	s.logPageDebugInfo(ctx)

	eval, err := s.page.Eval(collectPageTextJS)
	if err != nil {
		return nil, fmt.Errorf("failed to collect page text: %w", err)
	}

	texts := make([]string, 0, len(eval.Value.Arr()))
	for _, item := range eval.Value.Arr() {
		texts = append(texts, item.Str())
	}

	logger.Debugf(ctx, "Collected %d text candidates containing s_auth", len(texts))

	tokens := parseAuthTokens(texts)

	for name, token := range tokens {
		logger.Infof(ctx, "Found %s token (%d characters)", name, len(token))
	}

	return tokens, nil
}

// logPageDebugInfo logs a summary of the dispatch board state in debug mode.
func (s *ServiceImpl) logPageDebugInfo(ctx context.Context) {
	if !logger.IsDebugLevel() {
		return
	}

	eval, err := s.page.Eval(pageDebugInfoJS)
	if err != nil {
		logger.Debugf(ctx, "Could not collect page debug info: %v", err)

		return
	}

	info := eval.Value
	logger.Debugf(ctx, "Page: %s (%s), %d scripts, has s_auth: %v, %d chars",
		info.Get("url").Str(),
		info.Get("title").Str(),
		info.Get("scriptCount").Int(),
		info.Get("hasAuthToken").Bool(),
		info.Get("pageLength").Int())
}

// parseAuthTokens matches the known endpoint token patterns against the
// collected page text. The general pattern is recorded separately so a
// fallback entry can be built when no endpoint-specific token exists.
func parseAuthTokens(texts []string) map[string]string {
	tokens := make(map[string]string)

	for _, text := range texts {
		for name, pattern := range endpointTokenPatterns {
			if _, found := tokens[name]; found {
				continue
			}

			if token := utils.ExtractNamedGroup(pattern, tokenGroupName, text); token != "" {
				tokens[name] = token
			}
		}

		if _, found := tokens[tokenGeneral]; !found {
			if token := utils.ExtractNamedGroup(generalTokenPattern, tokenGroupName, text); token != "" {
				tokens[tokenGeneral] = token
			}
		}
	}

	return tokens
}

// buildEndpoints assembles the credential record from the found tokens.
// Endpoint-specific tokens produce their matching entries; when only the
// general token exists, a single fallback entry is built from it. An empty
// token set yields an empty record - token data is never fabricated.
func buildEndpoints(tokens map[string]string, cookieString string) []record.Endpoint {
	endpoints := make([]record.Endpoint, 0, len(tokens))

	if token, found := tokens[tokenCalendarStore]; found {
		endpoints = append(endpoints, record.Endpoint{
			URL:    calendarStoreURLPrefix + token,
			Cookie: cookieString,
			SAuth:  token,
		})
	}

	if token, found := tokens[tokenUpdateReminder]; found {
		endpoints = append(endpoints, record.Endpoint{
			URL:    updateReminderURLPrefix + token,
			Cookie: cookieString,
			SAuth:  token,
		})
	}

	if token, found := tokens[tokenSaveRecurring]; found {
		endpoints = append(endpoints, record.Endpoint{
			URL:    saveRecurringURLPrefix + token,
			Cookie: cookieString,
			SAuth:  token,
		})
	}

	if len(endpoints) > 0 {
		return endpoints
	}

	if token, found := tokens[tokenGeneral]; found {
		endpoints = append(endpoints, record.Endpoint{
			URL:      calendarStoreURLPrefix + token,
			Cookie:   cookieString,
			SAuth:    token,
			Fallback: true,
		})
	}

	return endpoints
}
