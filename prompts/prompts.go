package prompts

import _ "embed"

// Embedded prompt files

//go:embed patient_system.txt
var patientSystem string

//go:embed staff_system.txt
var staffSystem string

func PatientSystem() string { return patientSystem }
func StaffSystem() string   { return staffSystem }
