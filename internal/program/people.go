package program

import "strings"

type creditSource struct {
	keys            []string
	roleType        string
	defaultRoleName string
}

var creditSources = []creditSource{
	{keys: []string{"credits", "Credits", "persons", "Persons", "contributors", "Contributors"}, roleType: "credit", defaultRoleName: "credit"},
	{keys: []string{"person"}, roleType: "person", defaultRoleName: "person"},
	{keys: []string{"castMembers"}, roleType: "cast", defaultRoleName: "cast"},
	{keys: []string{"reducedCastMembers"}, roleType: "cast", defaultRoleName: "cast"},
	{keys: []string{"crewMembers"}, roleType: "crew", defaultRoleName: "crew"},
	{keys: []string{"reducedCrewMembers"}, roleType: "crew", defaultRoleName: "crew"},
}

// normalizePeople collects people and credits from every known credit shape.
//
// People without an upstream id are keyed by a hash of their lowercased name,
// so two different people sharing a name collapse into one row. This is a
// known limitation.
func normalizePeople(item map[string]any) ([]Person, []Credit) {
	var (
		people     []Person
		credits    []Credit
		seenPeople = map[string]struct{}{}
		seenCredit = map[string]struct{}{}
	)

	for _, source := range creditSources {
		node, _ := firstPresent(item, source.keys...)
		for index, entry := range asArray(node) {
			record := asRecord(entry)

			var name, personID string
			if record != nil {
				name = firstString(record, "name", "Name", "person", "Person")
				personID = firstID(record, "personId", "person_id", "id", "Id", "uuid", "slug")
			} else if s, ok := entry.(string); ok {
				name = strings.TrimSpace(s)
			}
			if name == "" {
				continue
			}
			if personID == "" {
				personID = "person:" + StableHash(strings.ToLower(name))
			}
			if _, ok := seenPeople[personID]; !ok {
				seenPeople[personID] = struct{}{}
				people = append(people, Person{SourcePersonID: personID, Name: name})
			}

			roleName := source.defaultRoleName
			roleType := source.roleType
			var billing *int
			if record != nil {
				if v := firstString(record, "roleName", "job", "Job", "credit", "role", "Role"); v != "" {
					roleName = v
				}
				if v := firstString(record, "roleType", "department", "group"); v != "" {
					roleType = v
				}
				billing = optionalInt(record, "order", "billingOrder", "position", "sort")
			} else {
				order := index
				billing = &order
			}

			key := personID + "::" + roleType + "::" + roleName
			if _, ok := seenCredit[key]; ok {
				continue
			}
			seenCredit[key] = struct{}{}
			credits = append(credits, Credit{
				SourcePersonID: personID,
				RoleType:       roleType,
				RoleName:       roleName,
				BillingOrder:   billing,
			})
		}
	}
	return people, credits
}
