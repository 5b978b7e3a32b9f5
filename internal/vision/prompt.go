package vision

// AnalysisPrompt instructs the model to transcribe a single arithmetic
// expression from the photo. The NO_MATH_FOUND sentinel keeps "nothing
// recognized" distinct from transport failures.
const AnalysisPrompt = `You are reading a photograph of a handwritten or printed arithmetic expression.

Transcribe the single most prominent expression exactly as written, using only:
- digits 0-9 and decimal points
- the operators + - * /
- parentheses

Rules:
- Convert multiplication signs (x, X, ×, ·) to * and division signs (÷) to /.
- Do not solve the expression. Do not add an = sign or a result.
- If the image contains no arithmetic expression at all, set "expression" to "NO_MATH_FOUND".
- Report your confidence in the transcription as a number between 0.0 and 1.0.

Respond with JSON only:
{
  "expression": "<transcribed expression or NO_MATH_FOUND>",
  "confidence": <0.0-1.0>,
  "rationale": "<one sentence on legibility>"
}`
