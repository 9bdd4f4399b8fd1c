package game_constants

// Points awarded for a correct answer. The formula lives in
// services/game.AnswerDelta so time-weighted scoring can replace it later
// without touching the scoring engine.
const CorrectAnswerPoints = 100

// Question cursors are 1-based; 0 means "not started yet".
const FirstQuestionIndex = 1
const NoQuestionIndex = 0

const FirstPlayerNumber = 1
