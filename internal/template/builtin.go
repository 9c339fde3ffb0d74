package template

// builtinTemplates are the stock notifications for each survey type. Tenants
// with custom branding register replacements at startup.
var builtinTemplates = []SurveyTemplate{
	{
		Key:     "engagement",
		Subject: "{{ company | default: \"Your company\" }} wants to hear from you",
		Body: `<html><body>
<p>Hi {{ first_name | default: "there" }},</p>
<p>{{ company | default: "Your company" }} is running the <strong>{{ campaign_name }}</strong> engagement survey
and your voice matters. It takes about five minutes and responses are anonymous.</p>
<p><a href="{{ survey_link }}">Start the survey</a></p>
<p>This link is personal to you — please don't forward it.</p>
</body></html>`,
	},
	{
		Key:     "exit",
		Subject: "A few questions before you go",
		Body: `<html><body>
<p>Hi {{ first_name | default: "there" }},</p>
<p>As part of your offboarding from {{ company | default: "the company" }}, we'd value your honest
feedback in the <strong>{{ campaign_name }}</strong> exit survey.</p>
<p><a href="{{ survey_link }}">Share your feedback</a></p>
<p>This link is personal to you — please don't forward it.</p>
</body></html>`,
	},
	{
		Key:     "onboarding",
		Subject: "How is your first stretch at {{ company | default: \"the company\" }} going?",
		Body: `<html><body>
<p>Hi {{ first_name | default: "there" }},</p>
<p>You've been with {{ company | default: "the company" }} for a little while now. Tell us how your
onboarding went in the <strong>{{ campaign_name }}</strong> survey.</p>
<p><a href="{{ survey_link }}">Start the survey</a></p>
<p>This link is personal to you — please don't forward it.</p>
</body></html>`,
	},
	{
		Key:     "performance",
		Subject: "{{ campaign_name }}: your input is requested",
		Body: `<html><body>
<p>Hi {{ first_name | default: "there" }},</p>
<p>The <strong>{{ campaign_name }}</strong> review cycle at {{ company | default: "your company" }} has opened
and your self-assessment is part of it.</p>
<p><a href="{{ survey_link }}">Complete your assessment</a></p>
<p>This link is personal to you — please don't forward it.</p>
</body></html>`,
	},
}
