package parse

import (
	"encoding/xml"

	"github.com/tidwall/gjson"
)

// xmlDetail is the portal's occasional XML rendering of a detail record.
type xmlDetail struct {
	NameOfUserAgency string `xml:"nameOfUserAgency"`
	State            string `xml:"state"`
	ProposalNo       string `xml:"proposalNo"`
	ProjectName      string `xml:"projectName"`
	Category         string `xml:"category"`
	ProposalStatus   string `xml:"proposalStatus"`
	AppUpdatedOn     string `xml:"app_updated_on"`
	// OtherProperty is a JSON array of {label, value} pairs embedded in the
	// XML, because of course it is.
	OtherProperty string `xml:"other_property"`
}

// extractXML fills values from the XML fallback shape. Only a handful of
// columns are available in this rendering.
func (p *Parser) extractXML(data []byte, values map[string]string) {
	var d xmlDetail
	if err := xml.Unmarshal(data, &d); err != nil {
		p.config.Logger.Debug("parse: XML fallback failed", "error", err)
		return
	}

	set := func(col, v string) {
		if v != "" {
			values[col] = sanitize(v)
		}
	}
	set("Organization Name", d.NameOfUserAgency)
	set("State", d.State)
	set("Proposal Number", d.ProposalNo)
	set("Project Name", d.ProjectName)
	set("Project Category (Code)", d.Category)
	set("Proposal Status", d.ProposalStatus)
	set("Application Updated On", d.AppUpdatedOn)

	if d.OtherProperty != "" && gjson.Valid(d.OtherProperty) {
		gjson.Parse(d.OtherProperty).ForEach(func(_, prop gjson.Result) bool {
			switch prop.Get("label").String() {
			case "Activity":
				set("Project Category", prop.Get("value").String())
			case "Sector":
				set("Sector", prop.Get("value").String())
			}
			return true
		})
	}
}
