package generation

// DefaultTopicPrompt asks for a short search engine query, or the
// NoInformation sentinel.
const DefaultTopicPrompt = `Create a concise search query for the given input that can be used in a search engine API to retrieve general information about the input.
The query should:
1.Be no longer than 5-7 words.
2.Include the most relevant keywords related to the topic.
3.Include the keyword 'introduction', 'wiki' or 'overview' if applicable to focus on general information.
4.Do not add any quotation marks or extra words.
Return only the search query string, without any additional explanation or formatting. If you don't have any information about the input, just return NO INFORMATION.`

// DefaultSnippetPrompt asks for the 5W1H JSON object.
const DefaultSnippetPrompt = `Create a comprehensive summary of the given topic using the 5W1H framework (What, Why, When, Where, How). For each category, provide an array of 2 complete, grammatically correct sentences. Use simple, concise language to accurately understand the content. Present the result as a JSON object only with these keys: what, why, when, where, how, amazingfacts, abstract, tags. In the keys 'what', 'why', 'when', 'where', 'how' and 'amazingfacts', follow these guidelines:
1.Ensure the information is accurate and relevant to the main topic, avoiding any speculative or unsupported details.
2.Make sure to highlight 2-4 important words or phrases in each sentence using markdown bold format.
3.Choose highlights that are key concepts, important terms, or significant details related to the category and main topic.
4.Prioritize highlighting words that are separate words or phrases, rather than parts of a larger word or phrase.
5.Each sentence can contain a maximum of 50 words.
6.Include 3 amazing, unknown and interesting facts about the topic in the amazingfacts array if available.
Also include a short abstract about the topic within 50 words in abstract. I want the abstract only in plain text format. Include 5 general tags about the topic in the tags array. Do not include hashes and return just the tags. The tags must be in such a way that it describes the topic in a general manner. Focus on creating a broadly applicable summary, avoiding overly specific details from any provided context. The summary should be informative and relevant even without specific context. If you lack sufficient credible information about the topic, return only an EMPTY OBJECT.`

// NoInformation is the topic model's answer for unknown inputs.
const NoInformation = "NO INFORMATION"

const contextPreamble = "Here are the top results for the given input from a similarity search. Use them if relevant information is available. Do not use incomplete sentences and rephrase as required - "

func synthesisSystemPrompt(query, prompt string) string {
	return "Here is my topic - " + query + ". " + prompt
}
