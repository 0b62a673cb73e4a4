// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Package fixsim é um simulador de contraparte FIX (acceptor) dirigido por YAML,
// usado para testar clientes de roteamento de ordens sem depender de uma bolsa real.
//
// Visão Geral:
// Cada mensagem de aplicação recebida é comparada com as regras de `custom_reply`
// (condições de header, body e uma guarda CEL opcional). A primeira regra que casa
// define um fluxo de respostas (ExecutionReport / OrderCancelReject) cujos campos
// são templates resolvidos contra a mensagem de entrada. As respostas são agendadas
// com atraso relativo e entregues em ordem pelo scheduler, que pode ser pausado.
//
// Sub-Pacotes Principais:
//
// 1. pkg/config, pkg/config/injector, pkg/loader:
//   - Estrutura do YAML, validação (validator/v10) e interpolação ${env|ssm|secret.X}.
//   - Carga de arquivo local, s3://bucket/key ou dynamodb://tabela/chave.
//
// 2. pkg/rules, pkg/template:
//   - Matcher de regras (optional(none), fluxo por símbolo, CEL).
//   - Templates: input.N, if_input.N, input_header.N, call.*, bool:*.
//
// 3. pkg/scheduler, pkg/dedup, pkg/lane:
//   - Entregas temporizadas, pausa, guarda de ClOrdID duplicado (memória ou Redis).
//
// 4. pkg/flood:
//   - Gerador de stress a partir de um lote "tag=valor,tag=valor" por linha.
//
// 5. pkg/simulator:
//   - quickfix.Application: logon, replay de TradingSessionStatus e pipeline de respostas.
//
// 6. pkg/transport, pkg/graphql, pkg/dictionary:
//   - Superfície de controle HTTP (pausa, stress, dicionário, GraphQL) e fila SQS.
//
// Exemplo de Início Rápido:
//
//	fixsim validate -c examples/simulator/simulator.yaml
//	fixsim run -c examples/simulator/simulator.yaml
//
//	curl -X POST http://127.0.0.1:2025/pause -d '{"flag": true}'
//	curl -X POST http://127.0.0.1:2025/stress --data-binary @examples/simulator/batch.txt
//	curl http://127.0.0.1:2025/ExecutionReportYaml
package fixsim
