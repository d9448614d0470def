package domain

// Education is the background shown alongside a card: which arcana or suit
// it belongs to and what that group stands for.
type Education struct {
	Archetype   string `json:"archetype"`
	Element     string `json:"element"`
	Description string `json:"description"`
}

// Card IDs follow the RWS order: 22 major arcana, then 14 cards each of
// wands, cups, swords and pentacles.
var educations = [...]Education{
	{
		Archetype:   "Major Arcana",
		Element:     "Spirit",
		Description: "The Major Arcana trace the Fool's Journey. These 22 cards are the universal archetypes of spiritual growth, from innocence (The Fool) to fulfilment (The World). They point to major turning points, fated events or deep psychological lessons rather than everyday detail.",
	},
	{
		Archetype:   "Wands",
		Element:     "Fire",
		Description: "Wands carry the element of fire: drive, creativity, ambition, passion and will. They usually speak of work, inspiration, adventure or competition. Fire rises; it is the energy of \"I want\" and of burning for a goal.",
	},
	{
		Archetype:   "Cups",
		Element:     "Water",
		Description: "Cups carry the element of water: emotion, the subconscious, intuition, relationships and love. They usually speak of romance, friendship, family and deep inner feeling. Water flows; it is the energy of \"I feel\" and \"I love\", of nourishing and cleansing the heart.",
	},
	{
		Archetype:   "Swords",
		Element:     "Air",
		Description: "Swords carry the element of air: intellect, thought, communication, conflict and truth. They usually speak of decisions, inner struggle, words exchanged or a hard reality that has to be faced. Air is fast and sharp; it is the energy of \"I think\" and \"I analyse\", sometimes with the anxiety and hurt that truth brings.",
	},
	{
		Archetype:   "Pentacles",
		Element:     "Earth",
		Description: "Pentacles carry the element of earth: the material world, money, the results of work, health and practical foundations. They usually speak of finances, learning a skill, long-term security and tangible reward. Earth is steady; it is the energy of \"I have\" and \"I build\", turning dreams into reality.",
	},
}

// Education returns the arcana or suit background for the card.
func (c Card) Education() Education {
	switch {
	case c.ID < 22:
		return educations[0]
	case c.ID < 36:
		return educations[1]
	case c.ID < 50:
		return educations[2]
	case c.ID < 64:
		return educations[3]
	default:
		return educations[4]
	}
}
