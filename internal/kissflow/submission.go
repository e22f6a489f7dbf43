package kissflow

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/dfe-digital/nomination-uploader/internal/structure"
)

// Section order of the nomination form: nominator details first, then
// nominee details, then career and evidence.
const (
	sectionNominator = 0
	sectionNominee   = 1
	sectionCareer    = 2
)

// Question labels as they appear on the form. The nationality question
// carries a typographic apostrophe in the source template; the date of birth
// one does not.
const (
	questionDetails      = "Details"
	questionDateOfBirth  = "What is your nominee's date of birth?"
	questionNationality  = "What is your nominee’s nationality?"
	questionRelationship = "What is your relationship to the nominee?"
	questionPosts        = "List the posts your nominee has excelled in"

	// QuestionEvidence and QuestionSupportLetters hold the attachment-name
	// tables whose files accompany the nomination.
	QuestionEvidence       = "Evidence of your nominee's contribution"
	QuestionSupportLetters = "Letters of support"

	// AttachmentNameField is the column the attachment tables key files by.
	AttachmentNameField = "Attachment name"
)

var addressFields = []string{"Street", "Town or City", "County", "Postcode", "Country"}

var (
	serviceRangePattern = regexp.MustCompile(`([A-Za-z]+ [0-9]{4}) to ([A-Za-z]+ [0-9]{4})`)
	serviceStartPattern = regexp.MustCompile(`([A-Za-z]+ [0-9]{4}).*`)
)

const (
	dateOfBirthLayout = "02/01/2006"
	monthYearLayout   = "Jan 2006"

	daysPerYearAge     = 365.24
	daysPerYearService = 365.25
)

// SubmissionInput carries everything the submission body is built from.
type SubmissionInput struct {
	Document           *structure.Document
	NominationFileName string
	NominationFileURL  string
	EvidenceFiles      []UploadedFile
	Now                time.Time
}

// BuildSubmission maps the structured nomination document onto the workflow
// submission schema. Absent answers are omitted rather than failing: the
// form template guarantees the fields that matter, and the workflow side
// treats missing keys as blanks.
func BuildSubmission(in SubmissionInput) map[string]any {
	doc := in.Document
	body := map[string]any{}

	body["Nomination_doc"] = map[string]string{in.NominationFileName: in.NominationFileURL}

	evidence := map[string]string{}
	for _, f := range in.EvidenceFiles {
		evidence[f.Name] = f.URL
	}
	body["Evidence"] = evidence

	body["Nomination_Type"] = "Public - Central"

	// nominee details
	body["Title"] = doc.Property(sectionNominee, questionDetails, "Title")
	body["First_Name"] = doc.Property(sectionNominee, questionDetails, "Forename")
	body["Last_Name"] = doc.Property(sectionNominee, questionDetails, "Surname")
	body["Telephone"] = doc.Property(sectionNominee, questionDetails, "Telephone number")
	body["Address"] = joinAddress(doc, sectionNominee)
	body["Date_of_Birth"] = doc.SimpleAnswer(sectionNominee, questionDateOfBirth)
	if dob, err := time.Parse(dateOfBirthLayout, doc.SimpleAnswer(sectionNominee, questionDateOfBirth)); err == nil {
		body["Age"] = int(in.Now.Sub(dob).Hours()/(24*daysPerYearAge) + 1)
	}
	body["Disability"] = yesNo(doc.Property(sectionNominee, "Equality monitoring", "Disability") == "Yes")
	body["Nationality"] = doc.SimpleAnswer(sectionNominee, questionNationality)
	body["Ethnic_Group"] = doc.Property(sectionNominee, "Equality monitoring", "Ethnic Origin Group")

	// last post held
	if posts := doc.Records(sectionCareer, questionPosts); len(posts) > 0 {
		body["Description"] = posts[0]["Name"]
		addServiceDates(body, posts[0]["Start Date to End Date"], in.Now)
	}

	// nominator details
	body["Title_"] = doc.Property(sectionNominator, questionDetails, "Title")
	body["First_Name_"] = doc.Property(sectionNominator, questionDetails, "Forename")
	body["Last_Name_"] = doc.Property(sectionNominator, questionDetails, "Surname")
	body["Telephone_"] = doc.Property(sectionNominator, questionDetails, "Telephone number")
	body["Email"] = doc.Property(sectionNominator, questionDetails, "Email")
	body["Address_"] = joinAddress(doc, sectionNominator)
	body["Ethnic_Group_"] = doc.Property(sectionNominator, "Equality monitoring", "Ethnic Origin Group")

	body["Relationship_to_nominee"] = doc.SimpleAnswer(sectionNominee, questionRelationship)

	return body
}

// addServiceDates derives the years of service, and the leaving date when
// the post has ended, from a "Jan 2001 to Jun 2010" style range.
func addServiceDates(body map[string]any, dates string, now time.Time) {
	if m := serviceRangePattern.FindStringSubmatch(dates); m != nil {
		start, errStart := parseMonthYear(m[1])
		end, errEnd := parseMonthYear(m[2])
		if errStart == nil && errEnd == nil {
			body["Years"] = int(math.Ceil(end.Sub(start).Hours() / 24 / daysPerYearService))
			body["Date_Leaving_Post"] = m[2]
		}
		return
	}
	if m := serviceStartPattern.FindStringSubmatch(dates); m != nil {
		if start, err := parseMonthYear(m[1]); err == nil {
			body["Years"] = int(math.Ceil(now.Sub(start).Hours() / 24 / daysPerYearService))
		}
	}
}

func parseMonthYear(s string) (time.Time, error) {
	t, err := time.Parse(monthYearLayout, s)
	if err != nil {
		t, err = time.Parse("January 2006", s)
	}
	return t, err
}

func joinAddress(doc *structure.Document, section int) string {
	var lines []string
	for _, field := range addressFields {
		if v := doc.Property(section, questionDetails, field); v != "" {
			lines = append(lines, v)
		}
	}
	return strings.Join(lines, "\n")
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
