package pipeline

// Prompt templates for the report stages. The pipeline was tuned against
// Traditional Chinese meeting transcripts; prompts are versioned with the
// binary, update requires rebuild.

// System prompts.
const (
	narrateSystemPrompt = "你是一個會議紀錄分析師，你會將會議紀錄片段改寫成精簡流暢的敘述"

	summarySystemPrompt = "你是一個會議紀錄分析師，你會根據會議紀錄來條列出會議中的重點說明"

	followUpsSystemPrompt = "你是一個會議紀錄分析師，你會根據會議紀錄來條列出會議中提到會議後需要做的重點事項"

	recommendSystemPrompt = "你是一個會議紀錄分析師，你會針對會議的待辦事項提出具體可行的下一步建議"
)

// narratePromptTemplate condenses one transcript chunk into a dense
// first-person narrative paragraph. Takes the chunk and a target length in
// characters.
const narratePromptTemplate = `會議紀錄片段：
「%s」
你要將以上會議紀錄片段改寫成一段以第一人稱敘述的精簡段落
保留所有提到的事項、決定與細節，去除贅字與口語詞
目標長度約%d字以內
我要你潤飾文字和修正錯字，並且寫易讀性高的回應
你的回應：`

// summaryPromptTemplate extracts the structured highlight list from the
// condensed text.
const summaryPromptTemplate = `會議紀錄：
「%s」
你要從以上會議紀錄摘要出重點討論的事項之重點說明
你的回應格式：

1.[事件標題]：
- [事件重點說明]

我要你潤飾文字和修正錯字，並且寫易讀性高的回應
你的回應：`

// followUpsPromptTemplate derives the to-do list.
const followUpsPromptTemplate = `會議紀錄：
「%s」
你要根據以上會議紀錄來摘要出會議後要做的重點事項
你的回應格式：

- [要做的重點事項]

我要你潤飾文字和修正錯字，並且寫易讀性高的回應
你的回應：`

// recommendPromptTemplate suggests a next action per to-do item.
const recommendPromptTemplate = `待辦事項：
「%s」
你要針對以上每一項待辦事項提出一個建議的下一步行動
你的回應格式：

- [待辦事項]：[建議的下一步行動]

我要你潤飾文字和修正錯字，並且寫易讀性高的回應
你的回應：`
