package knowledge

import "pokequest/internal/model"

var BaseQuestions = []model.QuizQuestion{
	{
		QuestionText:  "How many glasses of water should an adult drink per day on average?",
		Options:       []string{"1-2", "3-4", "8-10", "15+"},
		CorrectOption: "8-10",
	},
	{
		QuestionText:  "Which of these is a key component of a healthy diet?",
		Options:       []string{"High Sugar", "Balanced Macronutrients", "Low Fiber", "Saturated Fats"},
		CorrectOption: "Balanced Macronutrients",
	},
	{
		QuestionText:  "How many hours of sleep is recommended for most adults?",
		Options:       []string{"2-4 hours", "5-6 hours", "7-9 hours", "10+ hours"},
		CorrectOption: "7-9 hours",
	},
	{
		QuestionText:  "How long should you wash your hands with soap to remove most germs?",
		Options:       []string{"3 seconds", "At least 20 seconds", "1 minute exactly", "It does not matter"},
		CorrectOption: "At least 20 seconds",
	},
	{
		QuestionText:  "How many minutes of moderate activity per week do health agencies recommend for adults?",
		Options:       []string{"30", "75", "150", "600"},
		CorrectOption: "150",
	},
}

const artworkBase = "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/other/official-artwork/"

var BaseCatalog = []model.CollectibleItem{
	{ID: 25, Name: "Pikachu", Category: "electric", RarityTier: model.RarityCommon, ImageRef: artworkBase + "25.png",
		Description: "When several of these Pokémon gather, their electricity can cause lightning storms."},
	{ID: 6, Name: "Charizard", Category: "fire", RarityTier: model.RarityRare, ImageRef: artworkBase + "6.png",
		Description: "It spits fire that is hot enough to melt boulders. It may cause forest fires by blowing flames."},
	{ID: 9, Name: "Blastoise", Category: "water", RarityTier: model.RarityRare, ImageRef: artworkBase + "9.png",
		Description: "It crushes its foe under its heavy body to cause fainting. In a pinch, it will withdraw inside its shell."},
	{ID: 150, Name: "Mewtwo", Category: "psychic", RarityTier: model.RarityLegendary, ImageRef: artworkBase + "150.png",
		Description: "Its DNA is almost the same as Mew's. However, its size and disposition are vastly different."},
	{ID: 149, Name: "Dragonite", Category: "dragon", RarityTier: model.RarityRare, ImageRef: artworkBase + "149.png",
		Description: "It is said to make its home somewhere in the sea. It guides crews of shipwrecks to shore."},
	{ID: 94, Name: "Gengar", Category: "ghost", RarityTier: model.RarityUncommon, ImageRef: artworkBase + "94.png",
		Description: "On the night of a full moon, if shadows move on their own and laugh, it must be Gengar's doing."},
	{ID: 59, Name: "Arcanine", Category: "fire", RarityTier: model.RarityUncommon, ImageRef: artworkBase + "59.png",
		Description: "A Pokémon that has been admired since the past for its beauty. It runs agilely as if on wings."},
	{ID: 130, Name: "Gyarados", Category: "water", RarityTier: model.RarityRare, ImageRef: artworkBase + "130.png",
		Description: "Once it begins to rampage, a Gyarados will burn everything down, even in a harsh storm."},
	{ID: 143, Name: "Snorlax", Category: "normal", RarityTier: model.RarityUncommon, ImageRef: artworkBase + "143.png",
		Description: "Very lazy. Just eats and sleeps. As its rotund bulk builds, it becomes steadily more slothful."},
	{ID: 113, Name: "Chansey", Category: "normal", RarityTier: model.RarityUncommon, ImageRef: artworkBase + "113.png",
		Description: "A rare and elusive Pokémon that is said to bring happiness to those who manage to get it."},
	{ID: 133, Name: "Eevee", Category: "normal", RarityTier: model.RarityCommon, ImageRef: artworkBase + "133.png",
		Description: "Its genetic code is irregular. It may mutate if it is exposed to radiation from element Stones."},
	{ID: 151, Name: "Mew", Category: "psychic", RarityTier: model.RarityLegendary, ImageRef: artworkBase + "151.png",
		Description: "When viewed through a microscope, this Pokémon's short, fine, delicate hair can be seen."},
	{ID: 4, Name: "Charmander", Category: "fire", RarityTier: model.RarityCommon, ImageRef: artworkBase + "4.png",
		Description: "Obviously prefers hot things. When it rains, steam is said to spout from the tip of its tail."},
	{ID: 7, Name: "Squirtle", Category: "water", RarityTier: model.RarityCommon, ImageRef: artworkBase + "7.png",
		Description: "After birth, its back swells and hardens into a shell. Powerfully sprays foam from its mouth."},
	{ID: 1, Name: "Bulbasaur", Category: "grass", RarityTier: model.RarityCommon, ImageRef: artworkBase + "1.png",
		Description: "A strange seed was planted on its back at birth. The plant sprouts and grows with this Pokémon."},
	{ID: 39, Name: "Jigglypuff", Category: "normal", RarityTier: model.RarityCommon, ImageRef: artworkBase + "39.png",
		Description: "When its huge eyes light up, it sings a mysteriously soothing melody that lulls its enemies to sleep."},
	{ID: 54, Name: "Psyduck", Category: "water", RarityTier: model.RarityCommon, ImageRef: artworkBase + "54.png",
		Description: "Constantly troubled by headaches. It uses psychic powers when its head hurts."},
	{ID: 129, Name: "Magikarp", Category: "water", RarityTier: model.RarityCommon, ImageRef: artworkBase + "129.png",
		Description: "In the distant past, it was somewhat stronger than the horribly weak descendants that exist today."},
	{ID: 16, Name: "Pidgey", Category: "normal", RarityTier: model.RarityCommon, ImageRef: artworkBase + "16.png",
		Description: "A common sight in forests and woods. It flaps its wings at ground level to kick up blinding sand."},
	{ID: 19, Name: "Rattata", Category: "normal", RarityTier: model.RarityCommon, ImageRef: artworkBase + "19.png",
		Description: "Bites anything when it attacks. Small and very quick, it is a common sight in many places."},
}
