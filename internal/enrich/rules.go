package enrich

import "github.com/Bahjat/comply-scanner/internal/model"

// Rule is the static context attached to every finding of one audit rule.
type Rule struct {
	Check             string
	Criterion         string
	Name              string
	Level             model.WCAGLevel
	Principle         string
	Impact            string
	Remediation       string
	ManagerGuidance   string
	DeveloperGuidance string
}

const (
	perceivable    = "Perceivable"
	operable       = "Operable"
	understandable = "Understandable"
	robust         = "Robust"
)

// Synthesized rule ids.
const (
	RulePDFInaccessible = "pdf-inaccessible"
	RuleVendors         = "third-party-vendors"
)

var fallbackRule = Rule{
	Impact:            "This issue can make parts of the page difficult or impossible to use with assistive technology.",
	Remediation:       "Review the flagged elements against WCAG 2.1 AA and correct the markup.",
	ManagerGuidance:   "Ask your web developer or vendor to review this item as part of your accessibility remediation plan.",
	DeveloperGuidance: "Inspect the flagged elements with an accessibility checker such as axe DevTools and fix the reported violations.",
}

var nameRoleValue = Rule{
	Criterion:         "4.1.2",
	Name:              "Name, Role, Value",
	Level:             model.LevelA,
	Principle:         robust,
	Impact:            "Screen readers cannot tell users what this control is or what it does.",
	Remediation:       "Give every interactive element an accessible name and a valid role.",
	ManagerGuidance:   "Patients using screen readers will hear unlabeled controls and may be unable to complete tasks like booking or paying.",
	DeveloperGuidance: "Use native elements where possible; otherwise add aria-label or aria-labelledby and a valid ARIA role and state.",
}

func withCheck(r Rule, check string) Rule {
	r.Check = check
	return r
}

var rules = map[string]Rule{
	"is-on-https": {
		Check:             "SSL/HTTPS",
		Impact:            "Patient data submitted through this site can be intercepted, and browsers warn visitors that the site is not secure.",
		Remediation:       "Install a TLS certificate and redirect all HTTP traffic to HTTPS.",
		ManagerGuidance:   "Ask your hosting provider to enable HTTPS. Most hosts offer free certificates.",
		DeveloperGuidance: "Provision a certificate (for example with Let's Encrypt), add a permanent 301 redirect from http:// to https:// and enable HSTS.",
	},
	"image-alt": {
		Check:             "Image Alt Text",
		Criterion:         "1.1.1",
		Name:              "Non-text Content",
		Level:             model.LevelA,
		Principle:         perceivable,
		Impact:            "Blind and low-vision visitors hear nothing, or only a file name, where these images appear.",
		Remediation:       "Add a short alt attribute describing each informative image; use alt=\"\" for purely decorative images.",
		ManagerGuidance:   "Every photo, logo and icon that conveys information needs a text description. Your content editor can add these in the CMS image settings.",
		DeveloperGuidance: "Add meaningful alt text to each <img>. Decorative images should use alt=\"\" or role=\"presentation\".",
	},
	"input-image-alt": {
		Check:             "Image Button Alt Text",
		Criterion:         "1.1.1",
		Name:              "Non-text Content",
		Level:             model.LevelA,
		Principle:         perceivable,
		Impact:            "Screen reader users cannot tell what an image button does.",
		Remediation:       "Add alt text to every <input type=\"image\"> describing its action.",
		ManagerGuidance:   "Buttons made from images need a text label describing what happens when clicked.",
		DeveloperGuidance: "Set alt on <input type=\"image\"> to the button's action, for example alt=\"Submit appointment request\".",
	},
	"object-alt": {
		Check:             "Embedded Object Alt Text",
		Criterion:         "1.1.1",
		Name:              "Non-text Content",
		Level:             model.LevelA,
		Principle:         perceivable,
		Impact:            "Embedded objects are announced without any description.",
		Remediation:       "Provide a text alternative inside each <object> element.",
		ManagerGuidance:   "Embedded media needs a text description for visitors who cannot see it.",
		DeveloperGuidance: "Add fallback text content or aria-label to <object> elements.",
	},
	"html-has-lang": {
		Check:             "Language Attribute",
		Criterion:         "3.1.1",
		Name:              "Language of Page",
		Level:             model.LevelA,
		Principle:         understandable,
		Impact:            "Screen readers may read the page with the wrong pronunciation rules, making it hard to understand.",
		Remediation:       "Add a lang attribute to the <html> element, for example <html lang=\"en\">.",
		ManagerGuidance:   "This is a one-line fix in your website template. Ask your developer or website platform to set the page language.",
		DeveloperGuidance: "Set <html lang=\"en\"> (or the correct BCP 47 code) in the base layout template.",
	},
	"html-lang-valid": {
		Check:             "Valid Language Code",
		Criterion:         "3.1.1",
		Name:              "Language of Page",
		Level:             model.LevelA,
		Principle:         understandable,
		Impact:            "An invalid language code makes screen readers fall back to default pronunciation.",
		Remediation:       "Use a valid BCP 47 language code in the <html lang> attribute.",
		ManagerGuidance:   "The page language is set to an unrecognised value. Your developer can correct it in the site template.",
		DeveloperGuidance: "Replace the lang value with a valid BCP 47 tag such as en, en-US or es.",
	},
	"valid-lang": {
		Check:             "Language of Parts",
		Criterion:         "3.1.2",
		Name:              "Language of Parts",
		Level:             model.LevelAA,
		Principle:         understandable,
		Impact:            "Passages in another language are mispronounced by screen readers.",
		Remediation:       "Use valid language codes on elements whose language differs from the page.",
		ManagerGuidance:   "Content in other languages, such as Spanish patient information, must be marked so it is read correctly.",
		DeveloperGuidance: "Add a valid lang attribute to elements containing text in a different language.",
	},
	"color-contrast": {
		Check:             "Color Contrast",
		Criterion:         "1.4.3",
		Name:              "Contrast (Minimum)",
		Level:             model.LevelAA,
		Principle:         perceivable,
		Impact:            "Visitors with low vision or color blindness cannot read low-contrast text.",
		Remediation:       "Ensure text has a contrast ratio of at least 4.5:1 (3:1 for large text).",
		ManagerGuidance:   "Some text is too light to read against its background. Your designer should darken the text or change the background.",
		DeveloperGuidance: "Adjust foreground or background colors so normal text reaches 4.5:1 and large text 3:1. Verify with a contrast checker.",
	},
	"link-in-text-block": {
		Check:             "Links Distinguishable",
		Criterion:         "1.4.1",
		Name:              "Use of Color",
		Level:             model.LevelA,
		Principle:         perceivable,
		Impact:            "Color-blind visitors cannot tell links apart from surrounding text.",
		Remediation:       "Underline links in body text or give them a 3:1 contrast with surrounding text plus a non-color cue.",
		ManagerGuidance:   "Links inside paragraphs should be underlined so everyone can find them.",
		DeveloperGuidance: "Keep text-decoration: underline on inline links, or add a non-color indicator on focus and hover.",
	},
	"label":                  withCheck(nameRoleValue, "Form Labels"),
	"button-name":            withCheck(nameRoleValue, "Button Names"),
	"select-name":            withCheck(nameRoleValue, "Select Labels"),
	"frame-title":            withCheck(nameRoleValue, "Frame Titles"),
	"aria-allowed-attr":      withCheck(nameRoleValue, "ARIA Attributes"),
	"aria-command-name":      withCheck(nameRoleValue, "ARIA Command Names"),
	"aria-hidden-focus":      withCheck(nameRoleValue, "ARIA Hidden Focus"),
	"aria-input-field-name":  withCheck(nameRoleValue, "ARIA Input Names"),
	"aria-required-attr":     withCheck(nameRoleValue, "ARIA Required Attributes"),
	"aria-required-children": withCheck(nameRoleValue, "ARIA Required Children"),
	"aria-required-parent":   withCheck(nameRoleValue, "ARIA Required Parent"),
	"aria-roles":             withCheck(nameRoleValue, "ARIA Roles"),
	"aria-toggle-field-name": withCheck(nameRoleValue, "ARIA Toggle Names"),
	"aria-valid-attr":        withCheck(nameRoleValue, "ARIA Attribute Names"),
	"aria-valid-attr-value":  withCheck(nameRoleValue, "ARIA Attribute Values"),
	"form-field-multiple-labels": {
		Check:             "Multiple Form Labels",
		Criterion:         "3.3.2",
		Name:              "Labels or Instructions",
		Level:             model.LevelA,
		Principle:         understandable,
		Impact:            "Screen readers announce conflicting labels, confusing users filling in the form.",
		Remediation:       "Associate exactly one label with each form field.",
		ManagerGuidance:   "Some form fields have more than one label. Your developer should keep only one.",
		DeveloperGuidance: "Remove duplicate <label for> associations; use aria-describedby for supplementary hints.",
	},
	"link-name": {
		Check:             "Empty Links",
		Criterion:         "2.4.4",
		Name:              "Link Purpose (In Context)",
		Level:             model.LevelA,
		Principle:         operable,
		Impact:            "Screen readers announce these links as just \"link\", so users cannot tell where they go.",
		Remediation:       "Give every link descriptive text, or an aria-label when it only contains an icon.",
		ManagerGuidance:   "Icon-only links such as social media icons need a hidden text label describing where they lead.",
		DeveloperGuidance: "Add visible text, alt text on a contained image, or aria-label to each <a> element.",
	},
	"identical-links-same-purpose": {
		Check:             "Consistent Link Purpose",
		Criterion:         "2.4.9",
		Name:              "Link Purpose (Link Only)",
		Level:             model.LevelAAA,
		Principle:         operable,
		Impact:            "Links with the same text lead to different places, confusing users navigating by link list.",
		Remediation:       "Make link text unique for each destination.",
		ManagerGuidance:   "Replace repeated \"Learn more\" links with text that says what the visitor will learn about.",
		DeveloperGuidance: "Ensure identical accessible names resolve to the same URL or make the names distinct.",
	},
	"document-title": {
		Check:             "Page Title",
		Criterion:         "2.4.2",
		Name:              "Page Titled",
		Level:             model.LevelA,
		Principle:         operable,
		Impact:            "Visitors using screen readers or many browser tabs cannot identify the page.",
		Remediation:       "Add a unique, descriptive <title> to every page.",
		ManagerGuidance:   "Each page needs a title such as \"Contact Us | Your Practice Name\". This is set in your website platform's page settings.",
		DeveloperGuidance: "Render a non-empty, page-specific <title> element in the document head.",
	},
	"bypass": {
		Check:             "Skip Navigation",
		Criterion:         "2.4.1",
		Name:              "Bypass Blocks",
		Level:             model.LevelA,
		Principle:         operable,
		Impact:            "Keyboard users must tab through the entire menu on every page before reaching the content.",
		Remediation:       "Add a \"Skip to main content\" link or landmark regions.",
		ManagerGuidance:   "Keyboard users need a shortcut past the navigation menu. Ask your developer to add a skip link.",
		DeveloperGuidance: "Add a first-focusable skip link targeting <main id=\"main\">, and use landmark elements.",
	},
	"skip-link": {
		Check:             "Skip Link Target",
		Criterion:         "2.4.1",
		Name:              "Bypass Blocks",
		Level:             model.LevelA,
		Principle:         operable,
		Impact:            "The skip link does not move focus to the main content.",
		Remediation:       "Point the skip link at a focusable element that exists on the page.",
		ManagerGuidance:   "The \"skip to content\" shortcut is broken. Your developer should repair its target.",
		DeveloperGuidance: "Ensure the skip link href matches an existing id and the target can receive focus.",
	},
	"heading-order": {
		Check:             "Heading Order",
		Criterion:         "1.3.1",
		Name:              "Info and Relationships",
		Level:             model.LevelA,
		Principle:         perceivable,
		Impact:            "Screen reader users who navigate by headings get a confusing outline of the page.",
		Remediation:       "Use headings in sequential order without skipping levels.",
		ManagerGuidance:   "Headings should follow an outline (H1, then H2, then H3). Content editors should pick heading levels by structure, not by size.",
		DeveloperGuidance: "Do not skip heading levels; style headings with CSS instead of choosing tags for their size.",
	},
	"list": {
		Check:             "List Structure",
		Criterion:         "1.3.1",
		Name:              "Info and Relationships",
		Level:             model.LevelA,
		Principle:         perceivable,
		Impact:            "Screen readers cannot announce the number of items in malformed lists.",
		Remediation:       "Only place <li> elements directly inside <ul> or <ol>.",
		ManagerGuidance:   "Some lists are built incorrectly. Your developer can fix the underlying markup.",
		DeveloperGuidance: "Ensure <ul>/<ol> contain only <li>, <script> or <template> children.",
	},
	"td-headers-attr": {
		Check:             "Table Headers",
		Criterion:         "1.3.1",
		Name:              "Info and Relationships",
		Level:             model.LevelA,
		Principle:         perceivable,
		Impact:            "Screen reader users cannot tell which header a table cell belongs to.",
		Remediation:       "Make every headers attribute reference a header cell in the same table.",
		ManagerGuidance:   "Tables such as office hours or fee schedules need properly marked header cells.",
		DeveloperGuidance: "Use <th scope> for headers and ensure td[headers] ids point to cells in the same table.",
	},
	RulePDFInaccessible: {
		Check:             "PDF Accessibility",
		Criterion:         "1.3.1",
		Name:              "Info and Relationships",
		Level:             model.LevelA,
		Principle:         perceivable,
		Impact:            "Patients using screen readers cannot read untagged PDF forms and documents, which often contain intake paperwork or notices of privacy practices.",
		Remediation:       "Re-export the PDFs as tagged PDFs with a document language and title, or provide the content as accessible HTML.",
		ManagerGuidance:   "Downloadable PDFs such as intake forms must be accessible or replaced with online forms. Ask whoever produces them to export tagged PDFs.",
		DeveloperGuidance: "Run the files through Acrobat's Accessibility Checker: add tags, set /Lang in the catalog and a document title, or convert the forms to HTML.",
	},
	RuleVendors: {
		Check:             "Third-Party Vendors",
		Impact:            "Your practice can be held responsible for accessibility barriers in third-party tools embedded on your site.",
		Remediation:       "Request a current VPAT or accessibility conformance report from each vendor.",
		ManagerGuidance:   "Email each vendor listed and ask for their accessibility documentation. Keep the replies on file.",
		DeveloperGuidance: "Audit each embedded widget with a screen reader and keyboard only, and track vendor conformance reports.",
	},
	"page-has-heading-one": {
		Check:             "Page Heading",
		Criterion:         "2.4.6",
		Name:              "Headings and Labels",
		Level:             model.LevelAA,
		Principle:         operable,
		Impact:            "Screen reader users cannot jump to the main content or understand what the page is about.",
		Remediation:       "Add one <h1> describing the page's main purpose.",
		ManagerGuidance:   "Each page should start with a main heading, like \"Schedule an Appointment\".",
		DeveloperGuidance: "Render exactly one <h1> per page with the primary topic; keep logos out of the h1.",
	},
	"meta-viewport": {
		Check:             "Zoom Disabled",
		Criterion:         "1.4.4",
		Name:              "Resize Text",
		Level:             model.LevelAA,
		Principle:         perceivable,
		Impact:            "Low-vision visitors on phones cannot zoom in to read the page.",
		Remediation:       "Remove user-scalable=no and maximum-scale below 5 from the viewport meta tag.",
		ManagerGuidance:   "Your site blocks zooming on mobile. Your developer can remove this restriction with a one-line change.",
		DeveloperGuidance: "Use <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"> without user-scalable or maximum-scale limits.",
	},
	"meta-refresh": {
		Check:             "Automatic Refresh",
		Criterion:         "2.2.1",
		Name:              "Timing Adjustable",
		Level:             model.LevelA,
		Principle:         operable,
		Impact:            "The page reloads or redirects before some users finish reading it.",
		Remediation:       "Remove timed meta refresh; use server-side redirects instead.",
		ManagerGuidance:   "A page refreshes itself automatically. Ask your developer to replace it with a standard redirect.",
		DeveloperGuidance: "Replace <meta http-equiv=\"refresh\"> with an HTTP 301/302 redirect.",
	},
	"tabindex": {
		Check:             "Focus Order",
		Criterion:         "2.4.3",
		Name:              "Focus Order",
		Level:             model.LevelA,
		Principle:         operable,
		Impact:            "Keyboard users jump around the page in an unexpected order.",
		Remediation:       "Remove positive tabindex values and rely on document order.",
		ManagerGuidance:   "Keyboard navigation jumps around the page. Your developer should fix the tab order.",
		DeveloperGuidance: "Replace tabindex values above 0 with 0 or -1 and reorder the DOM instead.",
	},
	"duplicate-id-aria": {
		Check:             "Duplicate ARIA IDs",
		Criterion:         "4.1.1",
		Name:              "Parsing",
		Level:             model.LevelA,
		Principle:         robust,
		Impact:            "Assistive technology may read the wrong label or description for a control.",
		Remediation:       "Make every id referenced by ARIA attributes unique on the page.",
		ManagerGuidance:   "Some page elements share an internal identifier, which confuses screen readers.",
		DeveloperGuidance: "Ensure ids used by aria-labelledby, aria-describedby and label[for] are unique.",
	},
	"video-caption": {
		Check:             "Video Captions",
		Criterion:         "1.2.2",
		Name:              "Captions (Prerecorded)",
		Level:             model.LevelA,
		Principle:         perceivable,
		Impact:            "Deaf and hard-of-hearing visitors cannot follow video content.",
		Remediation:       "Provide synchronized captions for all prerecorded video.",
		ManagerGuidance:   "Videos on your site need captions. Most video platforms can generate them for you to review.",
		DeveloperGuidance: "Add a <track kind=\"captions\"> element to each <video>, or enable captions in the embedded player.",
	},
	"label-content-name-mismatch": {
		Check:             "Label in Name",
		Criterion:         "2.5.3",
		Name:              "Label in Name",
		Level:             model.LevelA,
		Principle:         operable,
		Impact:            "Voice-control users cannot activate controls by saying the visible label.",
		Remediation:       "Make each control's accessible name start with its visible text.",
		ManagerGuidance:   "Buttons must respond to the words printed on them for visitors using voice control.",
		DeveloperGuidance: "Ensure aria-label contains the visible label text, ideally at the start.",
	},
}

// Lookup returns the rule context for id, or a generic fallback.
func Lookup(id string) (Rule, bool) {
	r, ok := rules[id]
	if !ok {
		return fallbackRule, false
	}
	return r, true
}
