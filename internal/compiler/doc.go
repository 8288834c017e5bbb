// Package compiler turns CUE form configuration into ir.FormConfig.
//
// Forms live under a top-level "form" struct, one field per form:
//
//	form: onboarding: {
//	    title: "New starter survey"
//	    sections: [{id: 1, name: "General", order: 1}]
//	    questions: [
//	        {id: 10, section: 1, type: "radio", required: true, options: ["yes", "no"]},
//	        {id: 11, type: "text"}, // unassigned: always shown
//	    ]
//	    year_rules: [{condition: "equals", value: 2024, sections: [1]}]
//	    role_rules: [{role: "team_lead", sections: [1]}]
//	    management_lists: [{
//	        id: 1, name: "Team A", sections: [1]
//	        people: """
//	            1. Alice
//	            2. Bob
//	            """
//	    }]
//	}
//
// Every form is unified with the embedded #Form schema before it is read,
// so unknown fields and unknown enumeration values fail at compile time.
package compiler
