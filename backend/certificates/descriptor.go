package certificates

import "proficiency/backend/models"

var descriptors = map[models.Level]string{
	models.LevelA1: "Can understand and use familiar everyday expressions and very basic phrases aimed at the satisfaction of needs of a concrete type.",
	models.LevelA2: "Can communicate in simple and routine tasks requiring a simple and direct exchange of information on familiar topics and activities.",
	models.LevelB1: "Can understand the main points of clear standard input on familiar matters regularly encountered in work, school, leisure, etc.",
	models.LevelB2: "Can understand the main ideas of complex text on both concrete and abstract topics, including technical discussions in their field of specialization.",
	models.LevelC1: "Can express ideas fluently and spontaneously without much obvious searching for expressions.",
	models.LevelC2: "Can understand with ease virtually everything heard or read and can express themselves spontaneously, very fluently and precisely.",
}

// Descriptor returns the narrative printed for level, or the A1 text when the level is unknown.
func Descriptor(level models.Level) string {
	if d, ok := descriptors[level]; ok {
		return d
	}
	return descriptors[models.LevelA1]
}
