// File: pkg/steps/steps.go
package steps

import (
	"context"

	"github.com/cucumber/godog"
)

// definition binds a step pattern to its handler.
type definition struct {
	pattern string
	handler any
}

func (w *World) definitions() []definition {
	return []definition{
		// URLs
		{`^I visit "(.*?)"$`, w.visit},
		{`^I go to "(.*?)"$`, w.visit},
		{`^I should be at "(.*?)"$`, w.urlShouldBe},
		{`^The browser's URL should be "(.*?)"$`, w.urlShouldBe},
		{`^The browser's URL should contain "(.*?)"$`, w.urlShouldContain},
		{`^The browser's URL should not contain "(.*?)"$`, w.urlShouldNotContain},

		// Links
		{`^I click "(.*?)"$`, w.clickLink},
		{`^I should see a link with the url "(.*?)"$`, w.seeLinkWithURL},
		{`^I should see a link to "(.*?)" with the url "(.*?)"$`, w.seeLinkToWithURL},
		{`^I should see a link that contains the text "(.*?)" and the url "(.*?)"$`, w.seeLinkContaining},

		// Content
		{`^I should see "([^"]+)" within (\d+) seconds?$`, w.seeWithin},
		{`^I should see "([^"]+)"$`, w.see},
		{`^I see "([^"]+)"$`, w.see},
		{`^I should not see "([^"]+)"$`, w.notSee},

		// Elements
		{`^The element with id of "(.*?)" contains "(.*?)"$`, w.elementContains},
		{`^The element with id of "(.*?)" does not contain "(.*?)"$`, w.elementNotContains},
		{`^I should see an element with id of "(.*?)" within (\d+) seconds?$`, w.seeIDWithin},
		{`^I should see an element with id of "(.*?)"$`, w.seeID},
		{`^I should not see an element with id of "(.*?)"$`, w.notSeeID},
		{`^Element with id "([^"]*)" should be focused$`, w.focused},
		{`^Element with id "([^"]*)" should not be focused$`, w.notFocused},
		{`^I click on label "([^"]*)"$`, w.clickLabel},

		// Forms
		{`^I should see a form that goes to "(.*?)"$`, w.seeForm},
		{`^I fill in "(.*?)" with "(.*?)"$`, w.fillIn},
		{`^I press "(.*?)"$`, w.press},
		{`^Input "([^"]*)" (?:has|should have) value "([^"]*)"$`, w.inputHasValue},
		{`^I submit the only form$`, w.submitOnlyForm},
		{`^I submit the form with id "([^"]*)"$`, w.submitFormID},
		{`^I submit the form with action "([^"]*)"$`, w.submitFormAction},

		// Checkboxes
		{`^I check "(.*?)"$`, w.check},
		{`^I uncheck "(.*?)"$`, w.uncheck},
		{`^The "(.*?)" checkbox should be checked$`, w.checkboxChecked},
		{`^The "(.*?)" checkbox should not be checked$`, w.checkboxNotChecked},

		// Selects
		{`^I select "(.*?)" from "(.*?)"$`, w.selectOne},
		{`^I select the following from "([^"]*?)":?$`, w.selectMany},
		{`^The "(.*?)" option from "(.*?)" should be selected$`, w.optionSelected},
		{`^The following options from "([^"]*?)" should be selected:?$`, w.optionsSelected},
		{`^I should see option "([^"]*)" in selector "([^"]*)"$`, w.seeOption},
		{`^I should not see option "([^"]*)" in selector "([^"]*)"$`, w.notSeeOption},

		// Radios
		{`^I choose "(.*?)"$`, w.choose},
		{`^The "(.*?)" option should be chosen$`, w.chosen},
		{`^The "(.*?)" option should not be chosen$`, w.notChosen},

		// Alerts
		{`^I accept the alert$`, w.acceptAlert},
		{`^I dismiss the alert$`, w.dismissAlert},
		{`^I should see an alert with text "([^"]*)"$`, w.alertText},
		{`^I should not see an alert$`, w.noAlert},

		// Tooltips
		{`^I should see an element with tooltip "([^"]*)"$`, w.seeTooltip},
		{`^I should not see an element with tooltip "([^"]*)"$`, w.notSeeTooltip},
		{`^I (?:click|press) the element with tooltip "([^"]*)"$`, w.clickTooltip},

		// Page and frames
		{`^The page title should be "([^"]*)"$`, w.titleShouldBe},
		{`^I switch to the frame with id "([^"]*)"$`, w.switchToFrame},
		{`^I switch back to the main view$`, w.switchToMain},

		// Selectors
		{`^There should be an element matching \$\("(.*?)"\) within (\d+) seconds?$`, w.selectorWithin},
		{`^There should be an element matching \$\("(.*?)"\)$`, w.selectorExists},
		{`^There should be exactly (\d+) elements matching \$\("(.*?)"\)$`, w.selectorCount},
		{`^There should not be an element matching \$\("(.*?)"\)$`, w.selectorAbsent},
		{`^I fill in \$\("(.*?)"\) with "(.*?)"$`, w.selectorFillIn},
		{`^I submit \$\("(.*?)"\)$`, w.selectorSubmit},
		{`^I check \$\("(.*?)"\)$`, w.selectorCheck},
		{`^I click \$\("(.*?)"\)$`, w.selectorClick},
		{`^I follow the link \$\("(.*?)"\)$`, w.selectorFollow},
		{`^\$\("(.*?)"\) should be selected$`, w.selectorSelected},
		{`^I select \$\("(.*?)"\)$`, w.selectorSelect},
	}
}

// Register adds the step library to sc, bound to w. The session is opened
// before each scenario and closed after it.
func Register(sc *godog.ScenarioContext, w *World) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, w.Start(ctx)
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		return ctx, w.Stop(ctx)
	})
	for _, def := range w.definitions() {
		sc.Step(def.pattern, def.handler)
	}
}

// Patterns lists every step pattern in registration order.
func Patterns() []string {
	defs := (&World{}).definitions()
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.pattern
	}
	return out
}
