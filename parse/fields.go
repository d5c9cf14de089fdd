package parse

// Field maps one CSV column to a gjson path inside the stored detail payload.
type Field struct {
	Name string
	Path string
}

// Column order follows the published dataset; the nested paths mirror the
// portal's detail response shape.
var detailFields = []Field{
	{"ID", "data.proponentApplications.id"},
	{"Proposal Type", "data.proponentApplications.projectDetailDto.commonFormDetails.0.proposal_for"},
	{"Proposal Number", "data.proponentApplications.proposal_no"},
	{"Application Date", "data.proponentApplications.created_on"},
	{"Grant Date", "data.proponentApplications.grant_date"},
	{"Last Visible Status", "data.proponentApplications.last_visible_status"},

	{"Project Land Requirement (Hectares)", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafLocationOfKml.existing_total_land"},
	{"Total Cost (Lakhs)", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafProjectActivityCost.total_cost"},

	{"Organization Name", "data.proponentApplications.projectDetailDto.commonFormDetails.0.organization_name"},
	{"EC Consultant", "data.clearence.ecConsultant.consultant_name"},
	{"Description", "data.proponentApplications.applications.description"},
	{"Category", "data.proponentApplications.applications.category"},

	{"Project Category (Code)", "data.clearence.project_category"},
	{"Project Category", "data.clearence.environmentClearanceProjectActivityDetails.0.activities.name"},

	{"Project Name", "data.proponentApplications.projectDetailDto.projectName"},
	{"Project Description", "data.proponentApplications.projectDetailDto.commonFormDetails.0.project_description"},
	{"State", "data.proponentApplications.state"},
	{"District", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafKML.0.cafKMLPlots.0.district"},
	{"Sub District", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafKML.0.cafKMLPlots.0.sub_District"},
	{"Village", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafKML.0.cafKMLPlots.0.village"},
	{"Village Code", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafKML.0.cafKMLPlots.0.village_code"},

	{"MoEFCC File", "data.proponentApplications.moefccFileNumber"},
	{"State File", "data.proponentApplications.stateFileNumber"},

	{"Plot Nos", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafKML.0.cafKMLPlots.0.plot_no"},
	{"Shape of Project", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafLocationOfKml.shape_of_project"},
	{"Existing Non-Forest Land", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafLocationOfKml.existing_non_forest_land"},
	{"Existing Forest Land", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafLocationOfKml.existing_forest_land"},
	{"Existing Total Land", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafLocationOfKml.existing_total_land"},
	{"Additional Non-Forest Land", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafLocationOfKml.additional_non_forest_land"},
	{"Additional Forest Land", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafLocationOfKml.additional_forest_land"},
	{"Additional Total Land", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafLocationOfKml.additional_total_land"},
	{"Existing Cost", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafProjectActivityCost.total_existing_cost"},
	{"Expansion Cost", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafProjectActivityCost.total_expension_cost"},
	{"Employment (Construction)", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafProjectActivityCost.cp_total_employment"},
	{"Employment (Operational)", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafProjectActivityCost.op_existing_total_employment"},

	{"Villages Affected", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafOthers.no_of_villages"},
	{"Project Displaced Families", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafOthers.no_of_project_displaced_families"},
	{"Project Affected Families", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafOthers.no_of_project_affected_families"},
	{"Alternative Site Examined", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafOthers.is_alternative_sites_examined"},
	{"Alternative Site Description", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafOthers.alternative_sites_description"},
	{"Government Restriction", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafOthers.is_any_govt_restriction"},
	{"Litigation Pending", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafOthers.is_any_litigation_pending"},
	{"Violation Involved", "data.proponentApplications.projectDetailDto.commonFormDetails.0.cafOthers.is_any_violayion_involved"},

	{"Last Submission Date", "data.proponentApplications.last_submission_date"},
	{"Project Exemption Reason", "data.clearence.project_exempted_reason"},

	{"Compensatory Afforestation Type", "data.clearence.fcAforestationDetails.comp_afforestation_type"},
	{"Is Applicable Compensatory Afforestation", "data.clearence.fcAforestationDetails.is_applicable_compensatory_afforestation"},

	{"Mining Date of Issue", "data.clearence.forestClearanceMiningProposals.date_of_issue"},
	{"Mining Date of Validity", "data.clearence.forestClearanceMiningProposals.date_of_validity"},
	{"Mining Lease Period", "data.clearence.forestClearanceMiningProposals.lease_period"},
	{"Mining Date of Expiry", "data.clearence.forestClearanceMiningProposals.date_of_expiry"},
	{"Mining Lease Area", "data.clearence.forestClearanceMiningProposals.lease_area"},
	{"Mining Production Capacity", "data.clearence.forestClearanceMiningProposals.production_capacity"},
	{"Mining Type of Mining", "data.clearence.forestClearanceMiningProposals.type_of_mining"},
	{"Mining Method of Mining", "data.clearence.forestClearanceMiningProposals.method_of_mining"},

	{"Organization Street", "data.clearence.commonFormDetail.organization_street"},
	{"Organization City", "data.clearence.commonFormDetail.organization_city"},
	{"Organization State", "data.clearence.commonFormDetail.organization_state"},
	{"Organization Legal Status", "data.clearence.commonFormDetail.organization_legal_status"},
	{"Applicant Designation", "data.clearence.commonFormDetail.applicant_designation"},
	{"Applicant City", "data.clearence.commonFormDetail.applicant_city"},
	{"Applicant State", "data.clearence.commonFormDetail.applicant_state"},
}

// Columns only produced by the XML fallback path.
var xmlOnlyColumns = []string{"Proposal Status", "Application Updated On", "Sector"}

// Trailing derived columns.
var derivedColumns = []string{"KML URLs", "EIA Report PDF", "Cost Benefit Report PDF", "proposal_url"}

// DetailFields returns the gjson-backed column set in output order.
func DetailFields() []Field {
	out := make([]Field, len(detailFields))
	copy(out, detailFields)
	return out
}
