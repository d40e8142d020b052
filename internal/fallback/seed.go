package fallback

import "github.com/scholarloop/scholarloop/internal/content"

const (
	mc = content.QuestionMultipleChoice
	tf = content.QuestionTrueFalse
	tx = content.QuestionText
	fb = content.QuestionFillBlank
)

// seedSets holds the pre-authored diagnostic sets, QuestionCount each.
// The math set is weighted to 15 points.
var seedSets = map[string][]content.Question{
	SetMath: {
		{ID: "q1", Type: mc, Question: "What is 4 + 3?", Options: []string{"6", "7", "8", "9"}, CorrectAnswer: "7", Points: 1, SkillTested: "addition"},
		{ID: "q2", Type: mc, Question: "What is 9 - 5?", Options: []string{"3", "4", "5", "14"}, CorrectAnswer: "4", Points: 1, SkillTested: "subtraction"},
		{ID: "q3", Type: fb, Question: "27 + 15 = ___", CorrectAnswer: "42", Points: 2, SkillTested: "addition", Hint: "Add the ones first, then carry."},
		{ID: "q4", Type: fb, Question: "50 - 18 = ___", CorrectAnswer: "32", Points: 2, SkillTested: "subtraction", Hint: "Borrow from the tens."},
		{ID: "q5", Type: mc, Question: "Which digit is in the tens place of 374?", Options: []string{"3", "7", "4", "0"}, CorrectAnswer: "7", Points: 2, SkillTested: "place value"},
		{ID: "q6", Type: fb, Question: "6 x 4 = ___", CorrectAnswer: "24", Points: 2, SkillTested: "multiplication"},
		{ID: "q7", Type: tf, Question: "Half of 10 is 5.", CorrectAnswer: "true", Points: 2, SkillTested: "fractions"},
		{ID: "q8", Type: tx, Question: "Sara has 12 apples and buys 9 more. How many apples does she have now?", CorrectAnswer: "21", Points: 3, SkillTested: "word problems"},
	},
	SetScience: {
		{ID: "q1", Type: mc, Question: "Which of these do plants need to make food?", Options: []string{"Sunlight", "Sand", "Plastic", "Salt"}, CorrectAnswer: "Sunlight", Points: 1, SkillTested: "living things"},
		{ID: "q2", Type: tf, Question: "Water freezes into ice when it gets very cold.", CorrectAnswer: "true", Points: 1, SkillTested: "states of matter"},
		{ID: "q3", Type: mc, Question: "Which planet do we live on?", Options: []string{"Mars", "Earth", "Venus", "Jupiter"}, CorrectAnswer: "Earth", Points: 1, SkillTested: "space"},
		{ID: "q4", Type: mc, Question: "Which body part helps you breathe?", Options: []string{"Lungs", "Stomach", "Bones", "Skin"}, CorrectAnswer: "Lungs", Points: 1, SkillTested: "human body"},
		{ID: "q5", Type: tf, Question: "A magnet attracts wood.", CorrectAnswer: "false", Points: 1, SkillTested: "forces"},
		{ID: "q6", Type: fb, Question: "Ice melting into water is a change from solid to ___.", CorrectAnswer: "liquid", Points: 2, SkillTested: "states of matter"},
		{ID: "q7", Type: mc, Question: "What gives us light during the day?", Options: []string{"The Moon", "The Sun", "Stars", "Clouds"}, CorrectAnswer: "The Sun", Points: 1, SkillTested: "space"},
		{ID: "q8", Type: tx, Question: "Name one animal that lives in water.", CorrectAnswer: "fish", Points: 2, SkillTested: "living things"},
	},
	SetEnglish: {
		{ID: "q1", Type: mc, Question: "Which word is a noun?", Options: []string{"run", "happy", "cat", "quickly"}, CorrectAnswer: "cat", Points: 1, SkillTested: "parts of speech"},
		{ID: "q2", Type: mc, Question: "Which word rhymes with 'hat'?", Options: []string{"hot", "bat", "hit", "hut"}, CorrectAnswer: "bat", Points: 1, SkillTested: "phonics"},
		{ID: "q3", Type: fb, Question: "The plural of 'box' is ___.", CorrectAnswer: "boxes", Points: 2, SkillTested: "spelling"},
		{ID: "q4", Type: tf, Question: "A sentence starts with a capital letter.", CorrectAnswer: "true", Points: 1, SkillTested: "punctuation"},
		{ID: "q5", Type: mc, Question: "What is the opposite of 'big'?", Options: []string{"large", "small", "tall", "wide"}, CorrectAnswer: "small", Points: 1, SkillTested: "vocabulary"},
		{ID: "q6", Type: mc, Question: "Which sentence is correct?", Options: []string{"She go to school.", "She goes to school.", "She going to school.", "She gone to school."}, CorrectAnswer: "She goes to school.", Points: 2, SkillTested: "grammar"},
		{ID: "q7", Type: fb, Question: "Yesterday I ___ (walk) to the park.", CorrectAnswer: "walked", Points: 2, SkillTested: "grammar"},
		{ID: "q8", Type: tx, Question: "Write a word that means 'very happy'.", CorrectAnswer: "joyful", Points: 1, SkillTested: "vocabulary"},
	},
	SetLifeSkills: {
		{ID: "q1", Type: mc, Question: "What should you do before eating?", Options: []string{"Wash your hands", "Watch TV", "Run outside", "Sleep"}, CorrectAnswer: "Wash your hands", Points: 1, SkillTested: "hygiene"},
		{ID: "q2", Type: tf, Question: "It is kind to share with friends.", CorrectAnswer: "true", Points: 1, SkillTested: "values"},
		{ID: "q3", Type: mc, Question: "Which is a healthy snack?", Options: []string{"Candy", "An apple", "Soda", "Chips"}, CorrectAnswer: "An apple", Points: 1, SkillTested: "nutrition"},
		{ID: "q4", Type: tf, Question: "You should cross the road without looking.", CorrectAnswer: "false", Points: 1, SkillTested: "safety"},
		{ID: "q5", Type: mc, Question: "What do you say when someone helps you?", Options: []string{"Go away", "Thank you", "Hurry up", "Nothing"}, CorrectAnswer: "Thank you", Points: 1, SkillTested: "manners"},
		{ID: "q6", Type: mc, Question: "How many hours of sleep do most children need each night?", Options: []string{"3", "5", "10", "16"}, CorrectAnswer: "10", Points: 1, SkillTested: "habits"},
		{ID: "q7", Type: fb, Question: "When you feel angry, you can take a deep ___.", CorrectAnswer: "breath", Points: 2, SkillTested: "emotions"},
		{ID: "q8", Type: tx, Question: "Name one chore you can do to help at home.", CorrectAnswer: openAnswer, Points: 1, SkillTested: "responsibility"},
	},
	SetGeneral: {
		{ID: "q1", Type: mc, Question: "How many days are in a week?", Options: []string{"5", "6", "7", "8"}, CorrectAnswer: "7", Points: 1, SkillTested: "general knowledge"},
		{ID: "q2", Type: mc, Question: "Which color do you get by mixing blue and yellow?", Options: []string{"Green", "Purple", "Orange", "Pink"}, CorrectAnswer: "Green", Points: 1, SkillTested: "observation"},
		{ID: "q3", Type: tf, Question: "The sun rises in the east.", CorrectAnswer: "true", Points: 1, SkillTested: "general knowledge"},
		{ID: "q4", Type: mc, Question: "Which shape has three sides?", Options: []string{"Square", "Circle", "Triangle", "Rectangle"}, CorrectAnswer: "Triangle", Points: 1, SkillTested: "shapes"},
		{ID: "q5", Type: fb, Question: "Monday, Tuesday, ___, Thursday.", CorrectAnswer: "Wednesday", Points: 1, SkillTested: "sequencing"},
		{ID: "q6", Type: tf, Question: "Fish can live without water.", CorrectAnswer: "false", Points: 1, SkillTested: "reasoning"},
		{ID: "q7", Type: mc, Question: "What comes next: 2, 4, 6, ...?", Options: []string{"7", "8", "9", "10"}, CorrectAnswer: "8", Points: 2, SkillTested: "patterns"},
		{ID: "q8", Type: tx, Question: "Name one thing you like to learn about.", CorrectAnswer: openAnswer, Points: 1, SkillTested: "interests"},
	},
}
